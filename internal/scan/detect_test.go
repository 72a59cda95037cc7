package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestDetectKinds(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  []ProjectKind
	}{
		{
			name:  "terraform",
			files: map[string]string{"main.tf": "resource {}\n"},
			want:  []ProjectKind{KindTerraform},
		},
		{
			name: "terraform wins over yaml",
			files: map[string]string{
				"modules/net/main.tf": "resource {}\n",
				"deploy.yaml":         "apiVersion: v1\nkind: Pod\n",
			},
			want: []ProjectKind{KindTerraform},
		},
		{
			name:  "helm chart",
			files: map[string]string{"Chart.yaml": "name: demo\n"},
			want:  []ProjectKind{KindHelm},
		},
		{
			name:  "kubernetes manifest",
			files: map[string]string{"pod.yaml": "apiVersion: v1\nkind: Pod\nmetadata: {}\n"},
			want:  []ProjectKind{KindKubernetes},
		},
		{
			name:  "cloudformation template",
			files: map[string]string{"stack.yml": "AWSTemplateFormatVersion: '2010-09-09'\nResources: {}\n"},
			want:  []ProjectKind{KindCloudFormation},
		},
		{
			name:  "dockerfile",
			files: map[string]string{"Dockerfile": "FROM alpine\n"},
			want:  []ProjectKind{KindDockerfile},
		},
		{
			name:  "unknown",
			files: map[string]string{"README.md": "hello\n"},
			want:  nil,
		},
		{
			name:  "terraform in skipped dir is ignored",
			files: map[string]string{"node_modules/x/main.tf": "resource {}\n"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKinds(writeTree(t, tt.files)))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("terraform")
	assert.True(t, ok)
	assert.Equal(t, KindTerraform, k)

	_, ok = ParseKind("fortran")
	assert.False(t, ok)
}
