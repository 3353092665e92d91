package repository

import (
	"fmt"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// Denormalized attributes patched onto sibling copies when an access path is added.
const (
	attrKeys      = "keys"
	attrTags      = "tags"
	attrUpdatedOn = "updated_on"
)

type handler func(table string, e domain.Event) ([]storage.Operation, error)

// handlers is the static dispatch table. Each handler matches the closed set of
// variants for its kind and rejects anything else.
var handlers = map[domain.Kind]handler{
	domain.KindProductTeam:         productTeamOperations,
	domain.KindProduct:             productOperations,
	domain.KindDeviceReferenceData: deviceReferenceDataOperations,
	domain.KindDevice:              deviceOperations,
}

// Operations maps events, in order, to the write operations that keep every
// copy of their entity consistent. It performs no I/O.
func Operations(table string, events ...domain.Event) ([]storage.Operation, error) {
	var ops []storage.Operation
	for i, e := range events {
		if e == nil {
			return nil, &UnknownEventError{}
		}
		h, ok := handlers[e.Kind()]
		if !ok {
			return nil, &UnknownEventError{Event: e}
		}
		eventOps, err := h(table, e)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, e.EventName(), err)
		}
		ops = append(ops, eventOps...)
	}
	return ops, nil
}

func productTeamOperations(table string, e domain.Event) ([]storage.Operation, error) {
	switch ev := e.(type) {
	case domain.ProductTeamCreated:
		c, err := productTeamCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return created(table, c), nil
	case domain.ProductTeamKeyAdded:
		c, err := productTeamCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return accessPathAdded(table, c, attrKeys, ProductTeamKey(ev.NewKey.KeyValue)), nil
	case domain.ProductTeamDeleted:
		c, err := productTeamCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return deleted(table, c), nil
	default:
		return nil, &UnknownEventError{Event: e}
	}
}

func productOperations(table string, e domain.Event) ([]storage.Operation, error) {
	switch ev := e.(type) {
	case domain.ProductCreated:
		c, err := productCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return created(table, c), nil
	case domain.ProductKeyAdded:
		c, err := productCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return accessPathAdded(table, c, attrKeys, ProductKey(ev.State.ProductTeamID.String(), ev.NewKey.KeyValue)), nil
	case domain.ProductDeleted:
		c, err := productCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return deleted(table, c), nil
	default:
		return nil, &UnknownEventError{Event: e}
	}
}

func deviceReferenceDataOperations(table string, e domain.Event) ([]storage.Operation, error) {
	switch ev := e.(type) {
	case domain.DeviceReferenceDataCreated:
		c, err := deviceReferenceDataCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return created(table, c), nil
	case domain.QuestionnaireResponseAdded:
		c, err := deviceReferenceDataCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return []storage.Operation{update(table, c.root, c.fields())}, nil
	case domain.DeviceReferenceDataDeleted:
		c, err := deviceReferenceDataCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return deleted(table, c), nil
	default:
		return nil, &UnknownEventError{Event: e}
	}
}

func deviceOperations(table string, e domain.Event) ([]storage.Operation, error) {
	switch ev := e.(type) {
	case domain.DeviceCreated:
		c, err := deviceCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return created(table, c), nil
	case domain.DeviceKeyAdded:
		c, err := deviceCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return accessPathAdded(table, c, attrKeys, DeviceAltKey(ev.NewKey)), nil
	case domain.DeviceTagsAdded:
		c, err := deviceCopies(ev.State)
		if err != nil {
			return nil, err
		}
		added := make([]storage.Key, 0, len(ev.NewTags))
		for _, t := range ev.NewTags {
			added = append(added, deviceTagKey(ev.State, t))
		}
		return accessPathAdded(table, c, attrTags, added...), nil
	case domain.DeviceUpdated:
		c, err := deviceCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return updatedEverywhere(table, c), nil
	case domain.DeviceReferenceDataAssigned:
		c, err := deviceCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return updatedEverywhere(table, c), nil
	case domain.DeviceDeleted:
		c, err := deviceCopies(ev.State)
		if err != nil {
			return nil, err
		}
		return deleted(table, c), nil
	default:
		return nil, &UnknownEventError{Event: e}
	}
}

// created writes the root copy, failing if it already exists.
func created(table string, c copySet) []storage.Operation {
	return []storage.Operation{putNew(table, c.root, c.item(c.root, true))}
}

// accessPathAdded writes the new copies, failing if any exists, then patches
// attr on every other copy so each copy lists every current access path.
func accessPathAdded(table string, c copySet, attr string, added ...storage.Key) []storage.Operation {
	isNew := make(map[storage.Key]struct{}, len(added))
	ops := make([]storage.Operation, 0, len(c.all()))
	for _, key := range added {
		isNew[key] = struct{}{}
		ops = append(ops, putNew(table, key, c.item(key, false)))
	}
	patch := c.patch(attr, attrUpdatedOn)
	for _, key := range c.all() {
		if _, ok := isNew[key]; ok {
			continue
		}
		ops = append(ops, update(table, key, storage.CloneItem(patch)))
	}
	return ops
}

// updatedEverywhere overwrites the attributes of every copy.
func updatedEverywhere(table string, c copySet) []storage.Operation {
	ops := make([]storage.Operation, 0, len(c.all()))
	for _, key := range c.all() {
		ops = append(ops, update(table, key, c.fields()))
	}
	return ops
}

// deleted records the terminal state in the inactive copy and removes every
// active copy. Tag copies are not preserved.
func deleted(table string, c copySet) []storage.Operation {
	inactive := InactiveKey(c.root)
	ops := []storage.Operation{{
		Kind:         storage.KindPut,
		Table:        table,
		Key:          inactive,
		Item:         c.item(inactive, true),
		Precondition: storage.PreconditionNone,
	}}
	for _, key := range c.all() {
		ops = append(ops, storage.Operation{
			Kind:         storage.KindDelete,
			Table:        table,
			Key:          key,
			Precondition: storage.PreconditionNone,
		})
	}
	return ops
}

func putNew(table string, key storage.Key, item storage.Item) storage.Operation {
	return storage.Operation{
		Kind:         storage.KindPut,
		Table:        table,
		Key:          key,
		Item:         item,
		Precondition: storage.PreconditionMustNotExist,
	}
}

func update(table string, key storage.Key, patch storage.Item) storage.Operation {
	return storage.Operation{
		Kind:         storage.KindUpdate,
		Table:        table,
		Key:          key,
		Item:         patch,
		Precondition: storage.PreconditionNone,
	}
}
