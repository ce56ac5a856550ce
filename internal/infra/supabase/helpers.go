package supabase

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE and RPC
// ============================================================

// Mutations are never retried: a lost response could mean the write landed.

func (c *Client) doWrite(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := c.newRequest(ctx, method, endpoint, payload, prefer, "")
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	return c.call(ctx, req, path)
}

func (c *Client) doPost(ctx context.Context, table string, payload any) ([]byte, error) {
	return c.doWrite(ctx, http.MethodPost, table, payload, "return=representation")
}

func (c *Client) doPatch(ctx context.Context, path string, payload any) ([]byte, error) {
	return c.doWrite(ctx, http.MethodPatch, path, payload, "return=representation")
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	_, err := c.doWrite(ctx, http.MethodDelete, path, nil, "return=minimal")
	return err
}

// doRPC calls a Postgres function exposed by PostgREST.
func (c *Client) doRPC(ctx context.Context, fn string, args any) ([]byte, error) {
	return c.doWrite(ctx, http.MethodPost, "rpc/"+fn, args, "")
}

// doAuth calls the GoTrue API. An empty token authenticates with the service role.
func (c *Client) doAuth(ctx context.Context, method, path string, payload any, token string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)
	req, err := c.newRequest(ctx, method, endpoint, payload, "", token)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, req, "auth/"+path)
}
