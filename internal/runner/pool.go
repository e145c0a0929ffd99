package runner

import "sync"

type Job func() error

// RunPool executes jobs with at most maxWorkers concurrently and returns the
// errors in job order, nil entries elided. The encode phase fans out over
// this pool; each job owns its own image record, so no locking is needed on
// the results themselves.
func RunPool(maxWorkers int, jobs []Job) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j Job) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = j()
		}(i, job)
	}
	wg.Wait()

	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
