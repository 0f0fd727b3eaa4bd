package io

import (
	"bytes"
	"io"
)

// MaxBufferedBody 是缓存响应体时允许读取的最大字节数。
const MaxBufferedBody = 32 << 20

func ReadAll(r io.Reader) ([]byte, error) {
	switch b := r.(type) {
	case *BytesNopCloser:
		_, err := b.Seek(0, io.SeekEnd)
		return b.Bytes(), err
	default:
		return io.ReadAll(io.LimitReader(r, MaxBufferedBody))
	}
}

// SinkAll 丢弃 r 中剩余的数据，以便连接可以被复用。
func SinkAll(r io.Reader) (err error) {
	switch b := r.(type) {
	case *BytesNopCloser:
		_, err = b.Seek(0, io.SeekEnd)
	case *bytes.Reader:
		_, err = b.Seek(0, io.SeekEnd)
	default:
		_, err = io.Copy(io.Discard, r)
	}
	return
}
