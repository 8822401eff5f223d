package scheduler

// RunNow runs job synchronously, as the cron runner would.
func (s *Scheduler) RunNow(job Job) { s.run(job) }
