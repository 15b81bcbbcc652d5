/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

func humanReadableSize(bytes int) string {
	return humanize.Bytes(uint64(bytes))
}

// writeBody sends data with the headers already set on w and logs the
// transfer under label.
func writeBody(cfg *Config, w http.ResponseWriter, r *http.Request, errs chan<- error, status int, label string, data []byte, startTime time.Time) {
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)

	written, err := w.Write(data)
	if err != nil {
		errs <- err

		return
	}

	logf(cfg, "SERVE: %s (%s) to %s in %s",
		label,
		humanReadableSize(written),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}
