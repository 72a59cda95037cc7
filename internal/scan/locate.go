package scan

import (
	"os"
	"os/exec"
	"path/filepath"
)

// LocateTool resolves the command used to invoke an external scanner.
// Resolution order:
//  1. explicit override (config or SENTINEL_<TOOL>_BIN environment),
//  2. standard PATH lookup,
//  3. a binary next to the running executable,
//  4. local virtual-environment conventions under root,
//  5. `python3 -m <tool>` module invocation.
//
// When nothing resolves, the bare tool name is returned so the runner
// reports a uniform not-found result instead of the adapter failing.
func LocateTool(tool, override, root string) []string {
	if override != "" {
		return []string{override}
	}

	if p, err := exec.LookPath(tool); err == nil {
		return []string{p}
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), tool)
		if isExecutableFile(candidate) {
			return []string{candidate}
		}
	}

	if root != "" {
		for _, candidate := range []string{
			filepath.Join(root, ".venv", "bin", tool),
			filepath.Join(root, "venv", "bin", tool),
		} {
			if isExecutableFile(candidate) {
				return []string{candidate}
			}
		}
	}

	if py, err := exec.LookPath("python3"); err == nil {
		return []string{py, "-m", tool}
	}

	return []string{tool}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
