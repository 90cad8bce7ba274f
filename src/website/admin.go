package website

import (
	"git.quillwiki.net/quill/gazette/src/config"
)

func Index(c *RequestContext) ResponseData {
	var res ResponseData
	res.WriteJson(map[string]any{
		"service": "gazette",
		"env":     string(config.Config.Env),
	}, c.Perf)
	return res
}

// Dumps the recent request timings the perf collector has accumulated.
func PerfMon(c *RequestContext) ResponseData {
	storage := c.PerfCollector.GetPerfCopy()

	type perfJson struct {
		Route     string  `json:"route"`
		Method    string  `json:"method"`
		Path      string  `json:"path"`
		Ms        float64 `json:"ms"`
		NumBlocks int     `json:"numBlocks"`
	}
	items := make([]perfJson, 0, len(storage.AllRequests))
	for _, rp := range storage.AllRequests {
		items = append(items, perfJson{
			Route:     rp.Route,
			Method:    rp.Method,
			Path:      rp.Path,
			Ms:        float64(rp.End.Sub(rp.Start).Nanoseconds()) / 1000 / 1000,
			NumBlocks: len(rp.Blocks),
		})
	}

	var res ResponseData
	res.WriteJson(map[string]any{
		"ok":       true,
		"requests": items,
	}, c.Perf)
	return res
}
