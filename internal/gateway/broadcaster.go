package gateway

import (
	"strconv"
	"time"
)

// buildEnvelope hand-crafts the WS envelope around an already encoded
// payload:
//
//	{"symbol":"...","data":{...},"ts":"...","seq":N}
func buildEnvelope(symbol string, data []byte, ts time.Time, seq int64, initial bool) []byte {
	buf := make([]byte, 0, len(symbol)+len(data)+128)
	buf = append(buf, `{"type":"signal","symbol":"`...)
	buf = append(buf, symbol...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = ts.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	if initial {
		buf = append(buf, `,"initial":true`...)
	}
	buf = append(buf, '}')
	return buf
}
