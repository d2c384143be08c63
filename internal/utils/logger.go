package utils

import (
	"fmt"
	"log"
	"strings"
)

// LogEvent prints a standardized line with module/action/request_id.
// Keep messages summarized; never log payment secrets or full form data.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}

// LogFields is LogEvent with key=value pairs instead of a free-form message.
func LogFields(requestID, module, action string, kv ...any) {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "extra=%v", kv[len(kv)-1])
	}
	LogEvent(requestID, module, action, b.String())
}
