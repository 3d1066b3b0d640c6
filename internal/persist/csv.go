package persist

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LJTian/FilingPulse/internal/record"
)

// stagingDirName 首次写入失败后使用的暂存目录（位于目标目录下，保证 rename 不跨文件系统）
const stagingDirName = ".staging"

// PersistError 写入 CSV 失败（已重试一次），此前的文件保持不变
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// CSVPersister 每次 Flush 都把完整快照重写到目标文件：
// 先写临时文件并 fsync，再 rename 覆盖，任何失败都不会留下截断的文件。
type CSVPersister struct {
	path string

	// 便于测试注入失败
	rename func(oldpath, newpath string) error
}

func NewCSVPersister(path string) *CSVPersister {
	return &CSVPersister{path: path, rename: os.Rename}
}

func (p *CSVPersister) Path() string {
	return p.path
}

// Prepare 创建目标目录并确认可写；失败属于运行级错误，应在处理任何条目前中止
func (p *CSVPersister) Prepare() error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("output dir %s not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// Flush 以固定表头写出快照
func (p *CSVPersister) Flush(header []string, snapshot []record.Record) error {
	data, err := Encode(header, snapshot)
	if err != nil {
		return &PersistError{Path: p.path, Err: err}
	}

	dir := filepath.Dir(p.path)
	firstErr := p.writeVia(dir, data)
	if firstErr == nil {
		return nil
	}

	// 重试一次：改用暂存目录
	staging := filepath.Join(dir, stagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return &PersistError{Path: p.path, Err: errors.Join(firstErr, err)}
	}
	if err := p.writeVia(staging, data); err != nil {
		return &PersistError{Path: p.path, Err: errors.Join(firstErr, err)}
	}
	return nil
}

// writeVia 在 dir 下写临时文件，然后 rename 到目标路径
func (p *CSVPersister) writeVia(dir string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := p.rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Encode 把表头与快照编码为 CSV 字节
func Encode(header []string, snapshot []record.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, rec := range snapshot {
		row := rec.Row()
		if len(row) != len(header) {
			return nil, fmt.Errorf("record %q has %d columns, header has %d", rec.Key(), len(row), len(header))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
