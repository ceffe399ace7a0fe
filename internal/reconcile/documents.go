package reconcile

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/metastore"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
	"git.home.luguber.info/inful/upmusync/internal/util/tree"
)

var (
	// ErrMissingUUID is returned for a stream entry without a usable uuid.
	ErrMissingUUID = ferrors.ValidationError("stream has no uuid").Build()
	// ErrMalformedStream is returned for a stream entry that is not a section.
	ErrMalformedStream = ferrors.ValidationError("stream entry is not a section").Build()
)

// StreamDocument is the metadata document for one stream of a device.
type StreamDocument struct {
	Stream   string
	UUID     string
	Document metastore.Document
}

// BuildDocuments computes the documents for every stream of d, in stream
// name order. Each document is the device's shared metadata with the
// stream's own fields merged on top.
func BuildDocuments(d *snapshot.Device) ([]StreamDocument, error) {
	shared := d.SharedMetadata()
	names := d.StreamNames()
	docs := make([]StreamDocument, 0, len(names))
	for _, name := range names {
		fields, err := streamFields(d, name)
		if err != nil {
			return nil, err
		}
		id, err := streamUUID(name, fields)
		if err != nil {
			return nil, err
		}
		doc := tree.Copy(shared)
		tree.Merge(doc, fields)
		docs = append(docs, StreamDocument{Stream: name, UUID: id, Document: metastore.Document(doc)})
	}
	return docs, nil
}

// StreamUUIDs returns the uuid of every stream of d, in stream name order.
func StreamUUIDs(d *snapshot.Device) ([]string, error) {
	names := d.StreamNames()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		fields, err := streamFields(d, name)
		if err != nil {
			return nil, err
		}
		id, err := streamUUID(name, fields)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func streamFields(d *snapshot.Device, name string) (map[string]any, error) {
	fields, ok := d.Payload[name].(map[string]any)
	if !ok {
		return nil, ferrors.ValidationError(ErrMalformedStream.Message()).
			WithContext("stream", name).
			WithContext("type", fmt.Sprintf("%T", d.Payload[name])).
			Build()
	}
	return fields, nil
}

func streamUUID(name string, fields map[string]any) (string, error) {
	id, ok := fields[snapshot.KeyUUID].(string)
	if !ok || id == "" {
		return "", ferrors.ValidationError(ErrMissingUUID.Message()).
			WithContext("stream", name).
			Build()
	}
	return id, nil
}
