package dispatch

import (
	"sort"
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerSortCommands(tbl map[string]*commandSpec) {
	reg(tbl, "SORT", 2, -1, true, false, cmdSort)
}

// cmdSort implements the generic SORT command over Lists and Sets,
// with BY/GET key-pattern substitution (the first "*" in a pattern is
// replaced by the element; "GET #" returns the element itself), numeric
// or ALPHA ordering, LIMIT pagination, and an optional STORE destination.
func cmdSort(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	key := args[0]
	db := d.db(conn)

	var elems []string
	if e, ok := db.Get(key); ok {
		switch v := e.Value.(type) {
		case *store.List:
			for _, b := range v.Range(0, -1) {
				elems = append(elems, string(b))
			}
		case *store.Set:
			elems = v.Members()
		default:
			return errWrongType()
		}
	}

	alpha := false
	desc := false
	limitOffset, limitCount := int64(0), int64(-1)
	hasLimit := false
	byPattern := ""
	var getPatterns []string
	storeKey := ""

	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "ASC":
		case "DESC":
			desc = true
		case "ALPHA":
			alpha = true
		case "LIMIT":
			if i+2 >= len(args) {
				return errSyntax()
			}
			o, ok1 := parseInt(args[i+1])
			c, ok2 := parseInt(args[i+2])
			if !ok1 || !ok2 {
				return errNotInt()
			}
			limitOffset, limitCount, hasLimit = o, c, true
			i += 2
		case "BY":
			if i+1 >= len(args) {
				return errSyntax()
			}
			byPattern = args[i+1]
			i++
		case "GET":
			if i+1 >= len(args) {
				return errSyntax()
			}
			getPatterns = append(getPatterns, args[i+1])
			i++
		case "STORE":
			if i+1 >= len(args) {
				return errSyntax()
			}
			storeKey = args[i+1]
			i++
		default:
			return errSyntax()
		}
	}

	lookup := func(pattern, elem string) (string, bool) {
		resolved := strings.Replace(pattern, "*", elem, 1)
		hashField := ""
		if idx := strings.Index(resolved, "->"); idx >= 0 {
			hashField = resolved[idx+2:]
			resolved = resolved[:idx]
		}
		if hashField != "" {
			h, existed, bad := getHash(db, resolved)
			if bad || !existed {
				return "", false
			}
			v, ok := h.Get(hashField)
			if !ok {
				return "", false
			}
			return string(v), true
		}
		sv, existed, bad := getString(db, resolved)
		if bad || !existed {
			return "", false
		}
		return string(sv.Bytes), true
	}

	type scored struct {
		elem    string
		weight  string
		numeric float64
	}
	scoredElems := make([]scored, len(elems))
	for i, e := range elems {
		weight := e
		if byPattern != "" && byPattern != "nosort" {
			if w, ok := lookup(byPattern, e); ok {
				weight = w
			} else {
				weight = ""
			}
		}
		scoredElems[i] = scored{elem: e, weight: weight}
		if !alpha {
			f, _ := parseFloat(weight)
			scoredElems[i].numeric = f
		}
	}

	if byPattern != "nosort" {
		sort.SliceStable(scoredElems, func(i, j int) bool {
			if alpha {
				if desc {
					return scoredElems[i].weight > scoredElems[j].weight
				}
				return scoredElems[i].weight < scoredElems[j].weight
			}
			if desc {
				return scoredElems[i].numeric > scoredElems[j].numeric
			}
			return scoredElems[i].numeric < scoredElems[j].numeric
		})
	}

	ordered := make([]string, len(scoredElems))
	for i, s := range scoredElems {
		ordered[i] = s.elem
	}

	if hasLimit {
		if limitOffset < 0 {
			limitOffset = 0
		}
		if int(limitOffset) >= len(ordered) {
			ordered = nil
		} else {
			ordered = ordered[limitOffset:]
			if limitCount >= 0 && int(limitCount) < len(ordered) {
				ordered = ordered[:limitCount]
			}
		}
	}

	var output []string
	if len(getPatterns) == 0 {
		output = ordered
	} else {
		for _, e := range ordered {
			for _, gp := range getPatterns {
				if gp == "#" {
					output = append(output, e)
					continue
				}
				v, ok := lookup(gp, e)
				if !ok {
					output = append(output, "")
					continue
				}
				output = append(output, v)
			}
		}
	}

	if storeKey != "" {
		l := store.NewList()
		for _, v := range output {
			l.RightPush([]byte(v))
		}
		if l.Length() == 0 {
			db.Delete(storeKey)
		} else {
			db.Set(storeKey, l, 0)
		}
		return intReply(int64(l.Length()))
	}

	elemsOut := make([]resp.Value, len(output))
	for i, v := range output {
		elemsOut[i] = bulkReply([]byte(v))
	}
	return resp.NewArray(elemsOut)
}
