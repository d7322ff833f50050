package agent

// maxSimilarCalls is how many similar executions are allowed before the
// guard starts skipping. Models occasionally loop on the same tool; two
// identical runs give them a fair second look, the third is noise.
const maxSimilarCalls = 2

// callGuard tracks executed tool calls within one loop run and flags
// repeats. Only two tools can be similar: fetch_rss_news calls are always
// similar to each other (the cache does not change mid-conversation) and
// filter_rss_news calls are similar when they repeat the same query. Every
// other tool is never considered a repeat, however often it is called.
type callGuard struct {
	counts map[string]int
}

func newCallGuard() *callGuard {
	return &callGuard{counts: make(map[string]int)}
}

// similarityKey returns the counting key for a call, or ok=false when the
// tool is exempt from repeat detection.
func similarityKey(name string, args map[string]any) (string, bool) {
	switch name {
	case "fetch_rss_news":
		return name, true
	case "filter_rss_news":
		query, _ := args["query"].(string)
		return name + "\x00" + query, true
	}
	return "", false
}

// shouldSkip reports whether this call repeats earlier executions too
// often. Skipped calls are not recorded; only real executions count.
func (g *callGuard) shouldSkip(name string, args map[string]any) bool {
	key, ok := similarityKey(name, args)
	if !ok {
		return false
	}
	return g.counts[key] >= maxSimilarCalls
}

// record notes one execution.
func (g *callGuard) record(name string, args map[string]any) {
	if key, ok := similarityKey(name, args); ok {
		g.counts[key]++
	}
}
