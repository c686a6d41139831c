package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ImageBuilder собирает образ контейнера по директиве манифеста.
type ImageBuilder interface {
	Build(ctx context.Context, sourceDir string, directive ImageDirective) error
}

// DockerImageBuilder — ImageBuilder поверх командной строки docker.
//
// Контекст сборки собирается во временной директории: туда копируются
// объявленные файлы исходников и генерируется Dockerfile от базового
// образа. Если в корне исходников лежит готовый Dockerfile, он
// используется как есть.
type DockerImageBuilder struct {
	// Binary — имя исполняемого файла CLI. По умолчанию "docker".
	Binary string
}

// NewDockerImageBuilder создаёт DockerImageBuilder с бинарником docker.
func NewDockerImageBuilder() *DockerImageBuilder {
	return &DockerImageBuilder{Binary: "docker"}
}

// Build собирает образ directive.Tag из дерева исходников sourceDir.
func (b *DockerImageBuilder) Build(ctx context.Context, sourceDir string, directive ImageDirective) error {
	buildDir, err := os.MkdirTemp("", "scena-build-")
	if err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}
	defer os.RemoveAll(buildDir)

	for _, f := range directive.Files {
		if err := copyIntoContext(filepath.Join(sourceDir, f.Src), filepath.Join(buildDir, f.Src)); err != nil {
			return fmt.Errorf("stage %q: %w", f.Src, err)
		}
	}
	if err := b.writeDockerfile(sourceDir, buildDir, directive); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, b.Binary, "build", "-t", directive.Tag, buildDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s build: %w: %s", b.Binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// writeDockerfile кладёт Dockerfile в контекст сборки: готовый из
// исходников, либо сгенерированный от базового образа.
func (b *DockerImageBuilder) writeDockerfile(sourceDir, buildDir string, directive ImageDirective) error {
	ready := filepath.Join(sourceDir, "Dockerfile")
	if _, err := os.Stat(ready); err == nil {
		return copyIntoContext(ready, filepath.Join(buildDir, "Dockerfile"))
	}

	var lines []string
	lines = append(lines, "FROM "+directive.BaseImage)
	for _, f := range directive.Files {
		lines = append(lines, fmt.Sprintf("COPY %s %s", f.Src, f.Dst))
	}
	if len(directive.Requirements) > 0 {
		reqs := strings.Join(directive.Requirements, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(buildDir, "requirements.txt"), []byte(reqs), 0o644); err != nil {
			return fmt.Errorf("write requirements: %w", err)
		}
		lines = append(lines, "COPY requirements.txt requirements.txt")
		lines = append(lines, "RUN pip install -r requirements.txt")
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(buildDir, "Dockerfile"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write dockerfile: %w", err)
	}
	return nil
}

func copyIntoContext(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			target := filepath.Join(dst, strings.TrimPrefix(path, src))
			if d.IsDir() {
				return os.MkdirAll(target, 0o755)
			}
			return copyContextFile(path, target)
		})
	}
	return copyContextFile(src, dst)
}

func copyContextFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
