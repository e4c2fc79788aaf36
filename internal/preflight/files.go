package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckConfigFile checks that the config file exists and is private.
func (c *Checker) CheckConfigFile(path string) CheckResult {
	result := CheckResult{
		Name:     "config_file",
		Required: true,
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("not found: %s", path)
		result.Details = "run: gitlab-search config init"
		return result
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is readable by other users (mode %04o)", path, perm)
		result.Details = "run: chmod 600 " + path
		return result
	}

	result.Status = StatusPass
	result.Message = path
	return result
}

// CheckLogDir checks that the log directory can be created and written.
func (c *Checker) CheckLogDir() CheckResult {
	result := CheckResult{
		Name: "log_dir",
	}

	if err := os.MkdirAll(c.logDir, 0o700); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot create %s: %v", c.logDir, err)
		return result
	}

	testFile := filepath.Join(c.logDir, ".gitlab-search-preflight")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = c.logDir
	return result
}
