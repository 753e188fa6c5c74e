// Package draft implements resumable partial saves of in-progress field
// values. Nothing a draft save does commits a workflow transition: values
// land in draftValue, signed stays false.
package draft

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
)

// Input carries one field's in-progress value. Image fields send a capture
// payload; every other type sends the typed value directly.
type Input struct {
	Value   *models.FieldValue `json:"value,omitempty"`
	Capture string             `json:"capture,omitempty"`
}

// Result reports a draft save per field. A failed field never blocks the
// others.
type Result struct {
	Saved  []string          `json:"saved"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Save persists draft values for each field independently. Image uploads
// run in parallel; one field's failure does not cancel the rest. The
// returned error aggregates the per-field failures for logging and is
// non-nil only when Result.Failed is non-empty.
func Save(ctx context.Context, c *models.Contract, inputs map[string]Input, up assets.Uploader) (Result, error) {
	res := Result{Failed: make(map[string]string)}
	var merr *multierror.Error

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[string]models.FieldValue)
	)

	fail := func(id, msg string) {
		mu.Lock()
		defer mu.Unlock()
		res.Failed[id] = msg
		merr = multierror.Append(merr, fmt.Errorf("field %s: %s", id, msg))
	}

	for id, in := range inputs {
		f := c.FieldByID(id)
		if f == nil {
			fail(id, "unknown field")
			continue
		}
		if f.Signed {
			fail(id, "field already signed")
			continue
		}
		if f.Type.IsImage() {
			capture, err := assets.DecodeCapture(in.Capture)
			if err != nil {
				fail(id, err.Error())
				continue
			}
			wg.Add(1)
			go func(id string, ft models.FieldType, capture *assets.Capture) {
				defer wg.Done()
				url, err := up.Upload(ctx, capture, c.EventID, c.ContractID, id)
				if err != nil {
					fail(id, err.Error())
					return
				}
				mu.Lock()
				values[id] = models.FieldValue{Type: ft, AssetURL: url}
				mu.Unlock()
			}(id, f.Type, capture)
			continue
		}
		if in.Value == nil {
			fail(id, "missing value")
			continue
		}
		mu.Lock()
		values[id] = *in.Value
		mu.Unlock()
	}
	wg.Wait()

	for id, v := range values {
		if err := workflow.SetDraftValue(c, id, v); err != nil {
			fail(id, err.Error())
			continue
		}
		res.Saved = append(res.Saved, id)
	}
	sort.Strings(res.Saved)
	return res, merr.ErrorOrNil()
}
