package resource

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// usageScanCache memoizes "does this body contain this needle" by content
// hash rather than by body identity, so a card or resource whose text is
// byte-identical across two usage() calls (the common case: most of the
// project is untouched between one removal check and the next) is never
// rescanned.
var usageScanCache sync.Map // map[uint64]bool

// UsageCached behaves like Usage but short-circuits the textual scan
// through usageScanCache, which matters once usage() runs repeatedly over
// the same large card/resource bodies (e.g. one call per candidate resource
// during a bulk unused-resource sweep).
func UsageCached(r *Resource, cardContents map[string]string, resourceBodies map[string]string) []string {
	needle := r.Name.String()
	needleHash := xxhash.Sum64String(needle)
	var out []string
	for key, content := range cardContents {
		if scanContains(content, needle, needleHash) {
			out = append(out, key)
		}
	}
	for name, body := range resourceBodies {
		if name == needle {
			continue
		}
		if scanContains(body, needle, needleHash) {
			out = append(out, name)
		}
	}
	return out
}

func scanContains(content, needle string, needleHash uint64) bool {
	key := xxhash.Sum64String(content) ^ needleHash
	if v, ok := usageScanCache.Load(key); ok {
		return v.(bool)
	}
	found := strings.Contains(content, needle)
	usageScanCache.Store(key, found)
	return found
}
