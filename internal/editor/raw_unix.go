//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package editor

import "golang.org/x/sys/unix"

// makeRaw 关闭回显和行缓冲，每次读取至少返回一个字节
// 保留 ISIG 使 Ctrl-C 仍然产生 SIGINT，保留输出处理使 "\n" 仍然回到行首
func makeRaw(fd int) (func() error, error) {
	old, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, err
	}

	raw := *old
	raw.Lflag &^= unix.ECHO | unix.ICANON
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return nil, err
	}

	return func() error {
		return unix.IoctlSetTermios(fd, ioctlWriteTermios, old)
	}, nil
}
