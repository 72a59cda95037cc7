package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const yamlSniffLimit = 4096

// DetectKinds inspects the sandbox contents and returns the best-effort
// project kind. Terraform wins when present (tflint also applies there);
// otherwise Helm charts and a small sample of YAML files are checked for
// Kubernetes or CloudFormation markers. At most one kind is returned so a
// fixed sandbox always yields the same adapter set.
func DetectKinds(root string) []ProjectKind {
	var hasTerraform, hasDockerfile bool
	var yamlFiles []string

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDetectDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, ".tf"):
			hasTerraform = true
		case name == "Dockerfile":
			hasDockerfile = true
		case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
			if len(yamlFiles) < 5 {
				yamlFiles = append(yamlFiles, path)
			}
		}
		return nil
	})

	if hasTerraform {
		return []ProjectKind{KindTerraform}
	}

	if isHelmChart(root) {
		return []ProjectKind{KindHelm}
	}

	for _, p := range yamlFiles {
		head := readHead(p, yamlSniffLimit)
		if strings.Contains(head, "apiVersion:") && strings.Contains(head, "kind:") {
			return []ProjectKind{KindKubernetes}
		}
		if strings.Contains(head, "AWSTemplateFormatVersion") || strings.Contains(head, "\nResources:") {
			return []ProjectKind{KindCloudFormation}
		}
	}

	if hasDockerfile {
		return []ProjectKind{KindDockerfile}
	}

	return nil
}

var skipDetectDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"node_modules": true,
	"vendor":       true,
}

func isHelmChart(root string) bool {
	if _, err := os.Stat(filepath.Join(root, "Chart.yaml")); err == nil {
		return true
	}
	matches, _ := filepath.Glob(filepath.Join(root, "charts", "*", "Chart.yaml"))
	return len(matches) > 0
}

func readHead(path string, limit int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, _ := f.Read(buf)
	return string(buf[:n])
}
