package health

import "runtime"

// memoryStat reports the process memory figures named in §6's health
// shape. There is no third-party metrics library in the example pack
// that exposes these without wiring a full collector (expfmt/prometheus
// client, which ships counters/histograms, not a one-shot snapshot); a
// direct runtime.MemStats read is the narrowest correct tool here.
type memoryStat struct {
	HeapUsed  uint64 `json:"heapUsed"`
	HeapTotal uint64 `json:"heapTotal"`
	RSS       uint64 `json:"rss"`
}

func readMemoryStat() memoryStat {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return memoryStat{
		HeapUsed:  m.HeapAlloc,
		HeapTotal: m.HeapSys,
		RSS:       m.Sys,
	}
}
