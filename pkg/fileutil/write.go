package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic 先写同目录下的临时文件再重命名，目标文件存在时覆盖。
// 父目录不存在时会创建。
func WriteFileAtomic(filePath string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", filePath, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write to file %s: %w", filePath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync file %s: %w", filePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filePath, err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("failed to chmod file %s: %w", filePath, err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, filePath, err)
	}
	return nil
}

// Exists 判断文件是否存在
func Exists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
