package client

import "context"

type cycleRunResponse struct {
	Status string `json:"status"`
}

// RunCycle triggers an immediate cycle on a running cardwatch instance and
// blocks until it completes.
func (c *Client) RunCycle(ctx context.Context) (string, error) {
	var resp cycleRunResponse
	if err := c.post(ctx, "/admin/cycle/run", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}
