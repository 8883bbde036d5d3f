// Package vkapi provides the VK API access layer: a thin HTTP client
// implementing the Caller interface, typed response models, and the Executor
// that layers rate-limit admission, per-attempt timeouts and retry with
// exponential backoff on top of any Caller.
//
// All call sites go through the single generic entry point:
//
//	raw, err := exec.Call(ctx, "photos.get", vkapi.Params{
//	    "owner_id": -groupID,
//	    "count":    100,
//	    "offset":   offset,
//	})
//
// and decode the raw payload into the typed models they need.
package vkapi
