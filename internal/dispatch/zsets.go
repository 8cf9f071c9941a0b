package dispatch

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerZSetCommands(tbl map[string]*commandSpec) {
	reg(tbl, "ZADD", 4, -1, true, false, cmdZAdd)
	reg(tbl, "ZSCORE", 3, 3, false, false, cmdZScore)
	reg(tbl, "ZINCRBY", 4, 4, true, false, cmdZIncrBy)
	reg(tbl, "ZREM", 3, -1, true, false, cmdZRem)
	reg(tbl, "ZCARD", 2, 2, false, false, cmdZCard)
	reg(tbl, "ZRANGE", 4, 5, false, false, cmdZRange)
	reg(tbl, "ZREVRANGE", 4, 5, false, false, cmdZRevRange)
	reg(tbl, "ZRANGEBYSCORE", 4, -1, false, false, cmdZRangeByScore)
	reg(tbl, "ZRANK", 3, 3, false, false, cmdZRank)
	reg(tbl, "ZREVRANK", 3, 3, false, false, cmdZRevRank)
	reg(tbl, "ZREMRANGEBYSCORE", 4, 4, true, false, cmdZRemRangeByScore)
	reg(tbl, "ZREMRANGEBYRANK", 4, 4, true, false, cmdZRemRangeByRank)
}

func cmdZAdd(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	rest := args[1:]
	i := 0
	nx, xx, gt, lt, ch, incr := false, false, false, false, false, false
parseFlags:
	for i < len(rest) {
		switch strings.ToUpper(rest[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		case "CH":
			ch = true
		case "INCR":
			incr = true
		default:
			break parseFlags
		}
		i++
	}
	rest = rest[i:]
	if len(rest)%2 != 0 || len(rest) == 0 {
		return errSyntax()
	}
	if nx && xx {
		return errSyntax()
	}

	db := d.db(conn)
	_, _, bad := getZSet(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewZSet() })
	z := e.Value.(*store.ZSet)

	added, changed := 0, 0
	var incrResult float64
	var incrMember string
	touched := false
	for p := 0; p+1 < len(rest); p += 2 {
		score, ok := parseFloat(rest[p])
		if !ok {
			return errNotFloat()
		}
		member := rest[p+1]
		old, existed := z.Score(member)
		if nx && existed {
			if incr {
				return resp.NewNullBulk()
			}
			continue
		}
		if xx && !existed {
			if incr {
				return resp.NewNullBulk()
			}
			continue
		}
		newScore := score
		if incr {
			newScore = old + score
		}
		if existed && gt && newScore <= old {
			if incr {
				return resp.NewNullBulk()
			}
			continue
		}
		if existed && lt && newScore >= old {
			if incr {
				return resp.NewNullBulk()
			}
			continue
		}
		isNew := z.Add(member, newScore)
		touched = true
		if isNew {
			added++
		} else if old != newScore {
			changed++
		}
		if incr {
			incrResult = newScore
			incrMember = member
		}
	}
	if touched {
		db.Touch(args[0])
	}
	if incr {
		if incrMember == "" {
			return resp.NewNullBulk()
		}
		return bulkReply([]byte(formatFloat(incrResult)))
	}
	if ch {
		return intReply(int64(added + changed))
	}
	return intReply(int64(added))
}

func cmdZScore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	z, existed, bad := getZSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	s, ok := z.Score(args[1])
	if !ok {
		return resp.NewNullBulk()
	}
	return bulkReply([]byte(formatFloat(s)))
}

func cmdZIncrBy(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	delta, ok := parseFloat(args[1])
	if !ok {
		return errNotFloat()
	}
	db := d.db(conn)
	_, _, bad := getZSet(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewZSet() })
	z := e.Value.(*store.ZSet)
	newScore := z.IncrBy(args[2], delta)
	db.Touch(args[0])
	return bulkReply([]byte(formatFloat(newScore)))
}

func cmdZRem(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	z, existed, bad := getZSet(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	removed := 0
	for _, m := range args[1:] {
		if z.Remove(m) {
			removed++
		}
	}
	if removed > 0 {
		db.Touch(args[0])
	}
	if z.Card() == 0 {
		db.Delete(args[0])
	}
	return intReply(int64(removed))
}

func cmdZCard(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	z, existed, bad := getZSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(z.Card()))
}

func zsetRangeReply(items []store.MemberScore, withScores bool) resp.Value {
	if !withScores {
		elems := make([]resp.Value, len(items))
		for i, it := range items {
			elems[i] = bulkReply([]byte(it.Member))
		}
		return resp.NewArray(elems)
	}
	elems := make([]resp.Value, 0, len(items)*2)
	for _, it := range items {
		elems = append(elems, bulkReply([]byte(it.Member)), bulkReply([]byte(formatFloat(it.Score))))
	}
	return resp.NewArray(elems)
}

func cmdZRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return zRangeImpl(d, conn, args, false)
}

func cmdZRevRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return zRangeImpl(d, conn, args, true)
}

func zRangeImpl(d *Dispatcher, conn *ConnState, args []string, reverse bool) resp.Value {
	start, ok1 := parseInt(args[1])
	end, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return errNotInt()
	}
	withScores := false
	if len(args) == 4 {
		if strings.ToUpper(args[3]) != "WITHSCORES" {
			return errSyntax()
		}
		withScores = true
	}
	z, existed, bad := getZSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	items := z.RangeByRank(int(start), int(end), reverse)
	return zsetRangeReply(items, withScores)
}

func cmdZRangeByScore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	minS, maxS := args[1], args[2]
	minExcl, maxExcl := false, false
	if strings.HasPrefix(minS, "(") {
		minExcl = true
		minS = minS[1:]
	}
	if strings.HasPrefix(maxS, "(") {
		maxExcl = true
		maxS = maxS[1:]
	}
	min, max := parseScoreBound(minS), parseScoreBound(maxS)
	withScores := false
	rest := args[3:]
	var limitOffset, limitCount int64 = 0, -1
	hasLimit := false
	for i := 0; i < len(rest); i++ {
		switch strings.ToUpper(rest[i]) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(rest) {
				return errSyntax()
			}
			o, ok1 := parseInt(rest[i+1])
			c, ok2 := parseInt(rest[i+2])
			if !ok1 || !ok2 {
				return errNotInt()
			}
			limitOffset, limitCount, hasLimit = o, c, true
			i += 2
		default:
			return errSyntax()
		}
	}
	z, existed, bad := getZSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	items := z.RangeByScore(min, max, minExcl, maxExcl)
	if hasLimit {
		if limitOffset < 0 {
			limitOffset = 0
		}
		if int(limitOffset) >= len(items) {
			items = nil
		} else {
			items = items[limitOffset:]
			if limitCount >= 0 && int(limitCount) < len(items) {
				items = items[:limitCount]
			}
		}
	}
	return zsetRangeReply(items, withScores)
}

func parseScoreBound(s string) float64 {
	switch s {
	case "+inf":
		return math.Inf(1)
	case "-inf":
		return math.Inf(-1)
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func cmdZRank(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return zRankImpl(d, conn, args, false)
}

func cmdZRevRank(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return zRankImpl(d, conn, args, true)
}

func zRankImpl(d *Dispatcher, conn *ConnState, args []string, reverse bool) resp.Value {
	z, existed, bad := getZSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	rank, ok := z.Rank(args[1], reverse)
	if !ok {
		return resp.NewNullBulk()
	}
	return intReply(int64(rank))
}

func cmdZRemRangeByScore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	minS, maxS := args[1], args[2]
	minExcl, maxExcl := false, false
	if strings.HasPrefix(minS, "(") {
		minExcl = true
		minS = minS[1:]
	}
	if strings.HasPrefix(maxS, "(") {
		maxExcl = true
		maxS = maxS[1:]
	}
	min, max := parseScoreBound(minS), parseScoreBound(maxS)
	db := d.db(conn)
	z, existed, bad := getZSet(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	items := z.RangeByScore(min, max, minExcl, maxExcl)
	for _, it := range items {
		z.Remove(it.Member)
	}
	if len(items) > 0 {
		db.Touch(args[0])
	}
	if z.Card() == 0 {
		db.Delete(args[0])
	}
	return intReply(int64(len(items)))
}

func cmdZRemRangeByRank(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	start, ok1 := parseInt(args[1])
	end, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return errNotInt()
	}
	db := d.db(conn)
	z, existed, bad := getZSet(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	items := z.RangeByRank(int(start), int(end), false)
	for _, it := range items {
		z.Remove(it.Member)
	}
	if len(items) > 0 {
		db.Touch(args[0])
	}
	if z.Card() == 0 {
		db.Delete(args[0])
	}
	return intReply(int64(len(items)))
}
