package prefs

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/client/encryptor"
	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

// document is the body of a remote record. It mirrors PreferenceSnapshot
// without the exchange rate cache, and carries the sensitive fields raw so
// they can be either a marker-prefixed string or a plain JSON array.
type document struct {
	Version         int               `json:"version"`
	ActiveTabs      []string          `json:"activeTabs"`
	TabViewModes    map[string]string `json:"tabViewModes"`
	Theme           string            `json:"theme"`
	Currency        string            `json:"currency"`
	DistanceUnit    string            `json:"distanceUnit"`
	TemperatureUnit string            `json:"temperatureUnit"`

	CustomRooms                         []string `json:"customRooms"`
	HiddenDefaultRooms                  []string `json:"hiddenDefaultRooms"`
	CustomVehicleTypes                  []string `json:"customVehicleTypes"`
	HiddenDefaultVehicleTypes           []string `json:"hiddenDefaultVehicleTypes"`
	CustomServiceTypes                  []string `json:"customServiceTypes"`
	HiddenDefaultServiceTypes           []string `json:"hiddenDefaultServiceTypes"`
	CustomPetTypes                      []string `json:"customPetTypes"`
	HiddenDefaultPetTypes               []string `json:"hiddenDefaultPetTypes"`
	CustomSubscriptionCategories        []string `json:"customSubscriptionCategories"`
	HiddenDefaultSubscriptionCategories []string `json:"hiddenDefaultSubscriptionCategories"`

	StorageServers json.RawMessage `json:"storageServers,omitempty"`
	PrivateRelays  json.RawMessage `json:"privateRelays,omitempty"`
}

func newDocument(p models.PreferenceSnapshot) document {
	return document{
		Version:         p.Version,
		ActiveTabs:      p.ActiveTabs,
		TabViewModes:    p.TabViewModes,
		Theme:           p.Theme,
		Currency:        p.Currency,
		DistanceUnit:    p.DistanceUnit,
		TemperatureUnit: p.TemperatureUnit,

		CustomRooms:                         p.CustomRooms,
		HiddenDefaultRooms:                  p.HiddenDefaultRooms,
		CustomVehicleTypes:                  p.CustomVehicleTypes,
		HiddenDefaultVehicleTypes:           p.HiddenDefaultVehicleTypes,
		CustomServiceTypes:                  p.CustomServiceTypes,
		HiddenDefaultServiceTypes:           p.HiddenDefaultServiceTypes,
		CustomPetTypes:                      p.CustomPetTypes,
		HiddenDefaultPetTypes:               p.HiddenDefaultPetTypes,
		CustomSubscriptionCategories:        p.CustomSubscriptionCategories,
		HiddenDefaultSubscriptionCategories: p.HiddenDefaultSubscriptionCategories,
	}
}

func (d document) snapshot() models.PreferenceSnapshot {
	return models.PreferenceSnapshot{
		Version:         d.Version,
		ActiveTabs:      d.ActiveTabs,
		TabViewModes:    d.TabViewModes,
		Theme:           d.Theme,
		Currency:        d.Currency,
		DistanceUnit:    d.DistanceUnit,
		TemperatureUnit: d.TemperatureUnit,

		CustomRooms:                         d.CustomRooms,
		HiddenDefaultRooms:                  d.HiddenDefaultRooms,
		CustomVehicleTypes:                  d.CustomVehicleTypes,
		HiddenDefaultVehicleTypes:           d.HiddenDefaultVehicleTypes,
		CustomServiceTypes:                  d.CustomServiceTypes,
		HiddenDefaultServiceTypes:           d.HiddenDefaultServiceTypes,
		CustomPetTypes:                      d.CustomPetTypes,
		HiddenDefaultPetTypes:               d.HiddenDefaultPetTypes,
		CustomSubscriptionCategories:        d.CustomSubscriptionCategories,
		HiddenDefaultSubscriptionCategories: d.HiddenDefaultSubscriptionCategories,
	}
}

// BuildPayload renders the outgoing record body for p.
//
// With a capability both sensitive fields are sealed. Without one, or when
// sealing fails, storageServers goes out as a plain array and privateRelays
// is left out of the payload.
func BuildPayload(p models.PreferenceSnapshot, capability encryptor.Capability, log *zap.Logger) ([]byte, error) {
	log = logger.OrNop(log)
	doc := newDocument(p)

	servers := p.StorageServers
	if servers == nil {
		servers = []models.StorageServer{}
	}
	relays := p.PrivateRelays
	if relays == nil {
		relays = []string{}
	}

	var err error
	if doc.StorageServers, err = sealField(servers, capability); err != nil {
		log.Warn("sending storage servers unencrypted", zap.Error(err))
		if doc.StorageServers, err = json.Marshal(servers); err != nil {
			return nil, fmt.Errorf("marshal storage servers: %w", err)
		}
	}
	if doc.PrivateRelays, err = sealField(relays, capability); err != nil {
		log.Warn("leaving private relays out of payload", zap.Error(err))
		doc.PrivateRelays = nil
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

func sealField(v any, capability encryptor.Capability) (json.RawMessage, error) {
	sealed, err := encryptor.EncryptJSON(v, capability)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealed)
}

// ParsePayload parses a record body back into a snapshot. Only a body that
// is not a JSON document fails; a sensitive field that cannot be opened
// falls back to its default on its own and is logged.
func ParsePayload(data []byte, capability encryptor.Capability, log *zap.Logger) (models.PreferenceSnapshot, error) {
	log = logger.OrNop(log)
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.PreferenceSnapshot{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	p := doc.snapshot()

	if err := openField(doc.StorageServers, capability, &p.StorageServers); err != nil {
		log.Warn("storage servers unreadable, using default", zap.String("field", "storageServers"), zap.Error(err))
		p.StorageServers = nil
	}
	if err := openField(doc.PrivateRelays, capability, &p.PrivateRelays); err != nil {
		log.Warn("private relays unreadable, using default", zap.String("field", "privateRelays"), zap.Error(err))
		p.PrivateRelays = nil
	}

	p.BackfillDefaults()
	return p, nil
}

// openField decodes a sensitive field that is either absent, a sealed
// string, or a legacy plain array.
func openField(raw json.RawMessage, capability encryptor.Capability, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var sealed string
	if err := json.Unmarshal(raw, &sealed); err == nil {
		return encryptor.DecryptJSON(sealed, capability, out)
	}
	return json.Unmarshal(raw, out)
}
