package dispatch

import "github.com/gofast-project/gofastd/internal/resp"

// Typed reply errors, one constructor per category code from the
// protocol's error convention. Handlers return these directly as
// resp.Value rather than a Go error, since every command's contract is
// "produce exactly one reply value" — there is no caller that needs to
// distinguish a handler error from a handler success except by reply
// type, so a plain error return would just be unwrapped again.
func errWrongType() resp.Value {
	return resp.NewError("WRONGTYPE Operation against a key holding the wrong kind of value")
}

func errSyntax() resp.Value {
	return resp.NewError("ERR syntax error")
}

func errNotInt() resp.Value {
	return resp.NewError("ERR value is not an integer or out of range")
}

func errNotFloat() resp.Value {
	return resp.NewError("ERR value is not a valid float")
}

func errWrongArgs(cmd string) resp.Value {
	return resp.NewError("ERR wrong number of arguments for '" + cmd + "' command")
}

func errUnknownCommand(cmd string) resp.Value {
	return resp.NewError("ERR unknown command '" + cmd + "'")
}

func errNoAuth() resp.Value {
	return resp.NewError("NOAUTH Authentication required")
}

func errExecAbort() resp.Value {
	return resp.NewError("EXECABORT Transaction discarded because of previous errors")
}

func errOOM() resp.Value {
	return resp.NewError("OOM command not allowed when used memory > 'maxmemory'")
}

func errNotInSubscribe(cmd string) resp.Value {
	return resp.NewError("ERR Can't execute '" + cmd + "': only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context")
}

func errGeneric(msg string) resp.Value {
	return resp.NewError("ERR " + msg)
}

func okReply() resp.Value { return resp.NewSimpleString("OK") }
