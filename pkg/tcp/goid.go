package tcp

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID 从栈头 "goroutine <id> [...]" 中解析当前协程 ID，解析失败时返回 0
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
