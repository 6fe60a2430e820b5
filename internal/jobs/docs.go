// Package jobs provides scheduled background tasks for the delivery system.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// PollSource - the polling implementation of ports.SubscriptionSource. Each
// subscription is a cron entry ("@every <interval>") that re-fetches the
// participant's orders and hands the full set to the subscriber.
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	source := jobs.NewPollSource(orderRepo, 5*time.Second, logger, m)
//	jobManager := jobs.NewJobManager(logger, source)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
//   - Fetch failures are logged and the subscription keeps ticking
//   - A tick that fires while the previous fetch still runs is skipped
//   - Failed job starts will stop any already running jobs
package jobs
