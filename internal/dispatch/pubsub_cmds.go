package dispatch

import (
	"github.com/gofast-project/gofastd/internal/resp"
)

func registerPubSubCommands(tbl map[string]*commandSpec) {
	reg(tbl, "SUBSCRIBE", 2, -1, true, true, cmdSubscribe)
	reg(tbl, "UNSUBSCRIBE", 1, -1, true, true, cmdUnsubscribe)
	reg(tbl, "PSUBSCRIBE", 2, -1, true, true, cmdPSubscribe)
	reg(tbl, "PUNSUBSCRIBE", 1, -1, true, true, cmdPUnsubscribe)
	reg(tbl, "PUBLISH", 3, 3, true, true, cmdPublish)
	reg(tbl, "PUBSUB", 2, -1, false, true, cmdPubSub)
}

func ensureSubscriber(d *Dispatcher, conn *ConnState) {
	if conn.Sub == nil {
		conn.Sub = d.PubSub.NewSubscriber()
	}
}

func subAckReply(kind string, name string, total int) resp.Value {
	return resp.NewArray([]resp.Value{
		resp.NewBulkString([]byte(kind)),
		resp.NewBulkString([]byte(name)),
		resp.NewInteger(int64(total)),
	})
}

func cmdSubscribe(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	ensureSubscriber(d, conn)
	var last resp.Value
	for _, ch := range args {
		d.PubSub.Subscribe(conn.Sub, ch)
		conn.Channels[ch] = true
		last = subAckReply("subscribe", ch, len(conn.Channels)+len(conn.Patterns))
	}
	return last
}

func cmdUnsubscribe(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args) == 0 {
		for ch := range conn.Channels {
			if conn.Sub != nil {
				d.PubSub.Unsubscribe(conn.Sub, ch)
			}
			delete(conn.Channels, ch)
		}
		return subAckReply("unsubscribe", "", len(conn.Channels)+len(conn.Patterns))
	}
	var last resp.Value
	for _, ch := range args {
		if conn.Sub != nil {
			d.PubSub.Unsubscribe(conn.Sub, ch)
		}
		delete(conn.Channels, ch)
		last = subAckReply("unsubscribe", ch, len(conn.Channels)+len(conn.Patterns))
	}
	return last
}

func cmdPSubscribe(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	ensureSubscriber(d, conn)
	var last resp.Value
	for _, pat := range args {
		d.PubSub.PSubscribe(conn.Sub, pat)
		conn.Patterns[pat] = true
		last = subAckReply("psubscribe", pat, len(conn.Channels)+len(conn.Patterns))
	}
	return last
}

func cmdPUnsubscribe(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args) == 0 {
		for pat := range conn.Patterns {
			if conn.Sub != nil {
				d.PubSub.PUnsubscribe(conn.Sub, pat)
			}
			delete(conn.Patterns, pat)
		}
		return subAckReply("punsubscribe", "", len(conn.Channels)+len(conn.Patterns))
	}
	var last resp.Value
	for _, pat := range args {
		if conn.Sub != nil {
			d.PubSub.PUnsubscribe(conn.Sub, pat)
		}
		delete(conn.Patterns, pat)
		last = subAckReply("punsubscribe", pat, len(conn.Channels)+len(conn.Patterns))
	}
	return last
}

func cmdPublish(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	n := d.PubSub.Publish(args[0], []byte(args[1]))
	if d.Metrics != nil && n > 0 {
		d.Metrics.PubSubMessages.Add(float64(n))
	}
	return intReply(int64(n))
}

func cmdPubSub(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	switch args[0] {
	case "CHANNELS":
		pattern := "*"
		if len(args) > 1 {
			pattern = args[1]
		}
		chans := d.PubSub.ActiveChannels(pattern)
		return membersReply(chans)
	case "NUMSUB":
		elems := make([]resp.Value, 0, len(args[1:])*2)
		for _, ch := range args[1:] {
			elems = append(elems, bulkReply([]byte(ch)), intReply(int64(d.PubSub.ChannelCount(ch))))
		}
		return resp.NewArray(elems)
	case "NUMPAT":
		return intReply(int64(d.PubSub.PatternCount()))
	default:
		return errGeneric("Unknown PUBSUB subcommand")
	}
}
