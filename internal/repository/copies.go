package repository

import (
	"encoding/json"
	"fmt"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// Key prefixes of the single-table layout.
const (
	prefixProductTeam         = "PT#"
	prefixProduct             = "P#"
	prefixDeviceReferenceData = "DRD#"
	prefixDevice              = "D#"
	prefixDeviceTag           = "DT#"
	prefixInactive            = "IN#"
)

// ProductTeamKey addresses a team copy by id or alias.
func ProductTeamKey(teamIDOrAlias string) storage.Key {
	return storage.Key{PK: prefixProductTeam + teamIDOrAlias, SK: prefixProductTeam + teamIDOrAlias}
}

// ProductKey addresses a product copy by id or party key within its team.
func ProductKey(teamID, productIDOrKey string) storage.Key {
	return storage.Key{PK: prefixProductTeam + teamID, SK: prefixProduct + productIDOrKey}
}

// ProductPartition is the partition holding a team's product copies.
func ProductPartition(teamID string) (pk, skPrefix string) {
	return prefixProductTeam + teamID, prefixProduct
}

func DeviceReferenceDataKey(teamID, productID, drdID string) storage.Key {
	pk, _ := DeviceReferenceDataPartition(teamID, productID)
	return storage.Key{PK: pk, SK: prefixDeviceReferenceData + drdID}
}

// DeviceReferenceDataPartition is the partition holding a product's device
// reference data.
func DeviceReferenceDataPartition(teamID, productID string) (pk, skPrefix string) {
	return prefixProductTeam + teamID + "#" + prefixProduct + productID, prefixDeviceReferenceData
}

func DeviceKey(deviceID string) storage.Key {
	return storage.Key{PK: prefixDevice + deviceID, SK: prefixDevice + deviceID}
}

// DeviceAltKey addresses a device copy by one of its alternate keys.
func DeviceAltKey(key domain.Key) storage.Key {
	v := prefixDevice + string(key.KeyType) + "#" + key.KeyValue
	return storage.Key{PK: v, SK: v}
}

// DeviceTagPartition is the partition of devices resolved by t within a product.
func DeviceTagPartition(teamID, productID string, t tag.Tag) (pk, skPrefix string) {
	return prefixDeviceTag + teamID + "#" + productID + "#" + t.String(), prefixDevice
}

func deviceTagKey(d domain.Device, t tag.Tag) storage.Key {
	pk, _ := DeviceTagPartition(d.ProductTeamID.String(), d.ProductID.String(), t)
	return storage.Key{PK: pk, SK: prefixDevice + d.ID.String()}
}

// InactiveKey is the address of the shadow copy kept after root is deleted.
func InactiveKey(root storage.Key) storage.Key {
	return storage.Key{PK: prefixInactive + root.PK, SK: root.SK}
}

// copySet describes every copy of one entity state.
type copySet struct {
	root storage.Key
	keys []storage.Key
	tags []storage.Key
	body storage.Item
}

// all returns every copy key, root first.
func (c copySet) all() []storage.Key {
	out := make([]storage.Key, 0, 1+len(c.keys)+len(c.tags))
	out = append(out, c.root)
	out = append(out, c.keys...)
	return append(out, c.tags...)
}

// item returns a full copy item addressed by key.
func (c copySet) item(key storage.Key, root bool) storage.Item {
	item := storage.CloneItem(c.body)
	item[storage.AttrPK] = key.PK
	item[storage.AttrSK] = key.SK
	item[storage.AttrRoot] = root
	return item
}

// patch returns the subset of body named by attrs.
func (c copySet) patch(attrs ...string) storage.Item {
	out := make(storage.Item, len(attrs))
	for _, a := range attrs {
		out[a] = c.body[a]
	}
	return out
}

// fields returns every body attribute; the root flag of existing copies is left
// untouched.
func (c copySet) fields() storage.Item {
	return storage.CloneItem(c.body)
}

func bodyOf(state any) (storage.Item, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	return storage.ItemFromJSON(raw)
}

func productTeamCopies(t domain.ProductTeam) (copySet, error) {
	body, err := bodyOf(t)
	if err != nil {
		return copySet{}, err
	}
	c := copySet{root: ProductTeamKey(t.ID.String()), body: body}
	for _, k := range t.Keys {
		c.keys = append(c.keys, ProductTeamKey(k.KeyValue))
	}
	return c, nil
}

func productCopies(p domain.Product) (copySet, error) {
	body, err := bodyOf(p)
	if err != nil {
		return copySet{}, err
	}
	team := p.ProductTeamID.String()
	c := copySet{root: ProductKey(team, p.ID.String()), body: body}
	for _, k := range p.Keys {
		c.keys = append(c.keys, ProductKey(team, k.KeyValue))
	}
	return c, nil
}

func deviceReferenceDataCopies(d domain.DeviceReferenceData) (copySet, error) {
	body, err := bodyOf(d)
	if err != nil {
		return copySet{}, err
	}
	return copySet{
		root: DeviceReferenceDataKey(d.ProductTeamID.String(), d.ProductID.String(), d.ID.String()),
		body: body,
	}, nil
}

func deviceCopies(d domain.Device) (copySet, error) {
	body, err := bodyOf(d)
	if err != nil {
		return copySet{}, err
	}
	c := copySet{root: DeviceKey(d.ID.String()), body: body}
	for _, k := range d.Keys {
		c.keys = append(c.keys, DeviceAltKey(k))
	}
	for _, t := range d.Tags {
		c.tags = append(c.tags, deviceTagKey(d, t))
	}
	return c, nil
}

// entityCopies resolves the copy set of an aggregate's current state.
func entityCopies(e domain.Entity) (copySet, error) {
	switch v := e.(type) {
	case *domain.ProductTeam:
		return productTeamCopies(*v)
	case *domain.Product:
		return productCopies(*v)
	case *domain.DeviceReferenceData:
		return deviceReferenceDataCopies(*v)
	case *domain.Device:
		return deviceCopies(*v)
	default:
		return copySet{}, fmt.Errorf("unsupported entity %T", e)
	}
}

