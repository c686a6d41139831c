package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DockerCLI — реализация ContainerRuntime поверх командной строки docker.
// Работает с любым docker-совместимым CLI (docker, podman).
type DockerCLI struct {
	// Binary — имя исполняемого файла CLI. По умолчанию "docker".
	Binary string
}

// NewDockerCLI создаёт DockerCLI с бинарником docker.
func NewDockerCLI() *DockerCLI {
	return &DockerCLI{Binary: "docker"}
}

func (d *DockerCLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", d.Binary, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Create создаёт контейнер под одну shell-команду.
func (d *DockerCLI) Create(ctx context.Context, image, command string, volumes []VolumeBind, env map[string]string) (string, error) {
	args := []string{"create"}
	for _, v := range volumes {
		args = append(args, "-v", v.HostPath+":"+v.ContainerPath)
	}
	for k, v := range env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, image, "/bin/sh", "-c", command)

	id, err := d.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Start запускает контейнер.
func (d *DockerCLI) Start(ctx context.Context, containerID string) error {
	_, err := d.run(ctx, "start", containerID)
	return err
}

// Wait блокируется до завершения контейнера и возвращает код выхода.
func (d *DockerCLI) Wait(ctx context.Context, containerID string) (int, error) {
	out, err := d.run(ctx, "wait", containerID)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse exit code %q: %w", out, err)
	}
	return code, nil
}

// Logs возвращает объединённый stdout и stderr контейнера.
func (d *DockerCLI) Logs(ctx context.Context, containerID string) (string, error) {
	cmd := exec.CommandContext(ctx, d.Binary, "logs", containerID)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s logs: %w", d.Binary, err)
	}
	return combined.String(), nil
}

// Stop останавливает работающий контейнер.
func (d *DockerCLI) Stop(ctx context.Context, containerID string) error {
	_, err := d.run(ctx, "stop", containerID)
	return err
}

// Remove удаляет контейнер.
func (d *DockerCLI) Remove(ctx context.Context, containerID string) error {
	_, err := d.run(ctx, "rm", "-f", containerID)
	return err
}
