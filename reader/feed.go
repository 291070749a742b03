package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"epiflow/logger"
	"epiflow/models"
)

// FetchFeed queries the incremental feed, ordered by object id, skipping
// the first skip records. Callers pass the number of records already
// reconciled so a re-run only fetches what is genuinely new.
func (c *Client) FetchFeed(ctx context.Context, skip int) ([]models.RawRecord, error) {
	log := c.log.WithComponent("feed_reader")
	log.WithFields(logger.Fields{"skip": skip}).Debug("querying incremental feed")

	u, err := url.Parse(c.config.Source.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("feed url: %w", err)
	}
	q := u.Query()
	q.Set("f", "json")
	q.Set("where", "ObjectId>=0")
	q.Set("outFields", "*")
	q.Set("orderByFields", "ObjectId")
	q.Set("resultOffset", strconv.Itoa(skip))
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var resp models.FeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("feed decode: %w", err)
	}

	records := make([]models.RawRecord, 0, len(resp.Features))
	for _, f := range resp.Features {
		records = append(records, f.Attributes)
	}

	log.WithFields(logger.Fields{"records": len(records)}).Debug("feed parsed")
	return records, nil
}
