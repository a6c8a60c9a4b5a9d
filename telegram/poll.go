package telegram

import (
	"context"
	"time"

	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

const maxPollBackoff = 30 * time.Second

// Poll long polls until ctx is done, handing every update to handle in arrival order.
func (c *Client) Poll(ctx context.Context, handle func(types.Update)) error {
	var offset int64
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		updates, err := c.GetUpdates(ctx, offset, c.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tool.DefaultLogger.Warnf("[Telegram] getUpdates failed, retrying in %v: %v", backoff, err)
			if !c.sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = time.Second
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			handle(u)
		}
	}
}
