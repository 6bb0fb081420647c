// Package jsonl 实现校验结果与成交率明细的异步 JSONL 落盘。
// 编码与文件 I/O 在后台 goroutine 完成，调用方只负责投递记录；
// 单次运行写入量有限，关闭时统一 flush 即可保证完整性。
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

type opType int

const (
	opWrite opType = iota
	opFlush
	opClose
)

type op struct {
	typ  opType
	val  any
	done chan error
}

// Writer 异步 JSONL 写入器
// Write 只投递不编码；投递顺序即落盘顺序。
type Writer struct {
	// path 输出文件路径
	path string
	// ch 操作通道
	ch chan op

	// written 已成功编码落盘的记录数
	written atomic.Int64
	// dropped 编码失败被丢弃的记录数
	dropped atomic.Int64

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewWriter 创建 JSONL 写入器
// 目标文件总是截断重建：每次校验运行产出一份完整的结果文件，
// 不与历史运行的记录混在一起。
// 参数 path: 输出文件路径
// 参数 bufferSize: 投递通道容量
func NewWriter(path string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path: path,
		ch:   make(chan op, bufferSize),
	}

	w.wg.Add(1)
	go w.loop(f)

	return w, nil
}

// Path 返回输出文件路径
func (w *Writer) Path() string {
	return w.path
}

// Written 返回已落盘的记录数
// 关闭之后读取才是最终值。
func (w *Writer) Written() int64 {
	return w.written.Load()
}

// Dropped 返回编码失败被丢弃的记录数
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Write 异步写入一条 JSONL 记录
func (w *Writer) Write(v any) error {
	if w == nil {
		return fmt.Errorf("writer 为空")
	}
	if w.closed.Load() {
		return fmt.Errorf("writer 已关闭")
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if w.closed.Load() {
		return fmt.Errorf("writer 已关闭")
	}
	w.ch <- op{typ: opWrite, val: v}
	return nil
}

// WriteAll 依次写入多条记录
// 任一条投递失败即中断并返回错误。
func (w *Writer) WriteAll(vs []any) error {
	for _, v := range vs {
		if err := w.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// Flush 强制 flush 文件缓冲区
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	if w.closed.Load() {
		return nil
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if w.closed.Load() {
		return nil
	}
	done := make(chan error, 1)
	w.ch <- op{typ: opFlush, done: done}
	return <-done
}

// Close 关闭写入器（会先 flush 再关文件）
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.sendMu.Lock()
		defer w.sendMu.Unlock()
		done := make(chan error, 1)
		w.ch <- op{typ: opClose, done: done}
		w.closeErr = <-done
		close(w.ch)
	})
	w.wg.Wait()
	return w.closeErr
}

func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)
	reply := func(err error, done chan error) {
		if done != nil {
			done <- err
		}
	}

	for req := range w.ch {
		switch req.typ {
		case opWrite:
			b, err := json.Marshal(req.val)
			if err != nil {
				w.dropped.Add(1)
				continue
			}
			if _, err := bw.Write(b); err != nil {
				w.dropped.Add(1)
				continue
			}
			if err := bw.WriteByte('\n'); err != nil {
				w.dropped.Add(1)
				continue
			}
			w.written.Add(1)
		case opFlush:
			reply(bw.Flush(), req.done)
		case opClose:
			reply(bw.Flush(), req.done)
			return
		}
	}
}
