//go:build !unix

package tcp

func classifyErrno(err error) error { return nil }
