package notify

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// StartRetrySweeper runs RetryDue on the given cron spec (e.g. "@every 1m").
// Overlapping runs are skipped.
func StartRetrySweeper(d *Dispatcher, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		n, err := d.RetryDue(context.Background())
		if err != nil {
			log.Printf("[notify] retry sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[notify] retry sweep attempted %d notifications", n)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
