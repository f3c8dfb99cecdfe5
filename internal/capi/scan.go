package capi

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"sync"

	"github.com/go-pkgz/syncs"
	"github.com/hashicorp/go-multierror"
)

var identifier = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Report is the outcome of a Scan
type Report struct {
	Functions []string       // header functions, in header order
	Files     int            // files scanned
	Counts    map[string]int // lines mentioning each function
}

// Missing returns the functions no scanned line mentions, in header order
func (r Report) Missing() []string {
	var res []string
	for _, fn := range r.Functions {
		if r.Counts[fn] == 0 {
			res = append(res, fn)
		}
	}
	return res
}

// Scan counts, for every function, the lines of files mentioning it as a
// whole identifier, so duckdb_open doesn't count duckdb_open_ext. Files
// are read by up to concurrency workers. Unreadable files don't stop the
// scan, their errors are returned together with the partial report.
func Scan(ctx context.Context, functions, files []string, concurrency int) (Report, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	wanted := make(map[string]bool, len(functions))
	counts := make(map[string]int, len(functions))
	for _, fn := range functions {
		wanted[fn] = true
		counts[fn] = 0
	}

	var lock sync.Mutex
	errs := new(multierror.Error)

	wg := syncs.NewErrSizedGroup(concurrency, syncs.Context(ctx), syncs.Preemptive)
	for _, file := range files {
		file := file
		wg.Go(func() error {
			found, err := scanFile(file, wanted)

			lock.Lock()
			defer lock.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
				return nil
			}
			for fn, n := range found {
				counts[fn] += n
			}
			log.Printf("[DEBUG] %s mentions %d functions", file, len(found))
			return nil
		})
	}
	_ = wg.Wait() // workers report through errs

	report := Report{Functions: functions, Files: len(files), Counts: counts}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, errs.ErrorOrNil()
}

func scanFile(path string, wanted map[string]bool) (map[string]int, error) {
	fh, err := os.Open(path) // nolint
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", path, err)
	}
	defer fh.Close()

	found := map[string]int{}
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var seen map[string]bool
		for _, id := range identifier.FindAllString(scanner.Text(), -1) {
			if !wanted[id] || seen[id] {
				continue
			}
			if seen == nil {
				seen = map[string]bool{}
			}
			seen[id] = true
			found[id]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("can't read %s: %w", path, err)
	}
	return found, nil
}
