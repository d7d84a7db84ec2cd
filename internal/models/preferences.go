package models

// CurrentSchemaVersion is the schema version written by this build. Stored
// documents with a lower version are backfilled and bumped on read.
const CurrentSchemaVersion = 3

// DefaultView is the view selected on every process start.
const DefaultView = "home"

// AvailableTabs lists every feature a user can enable.
var AvailableTabs = []string{
	"appliances",
	"vehicles",
	"maintenance",
	"pets",
	"subscriptions",
	"warranties",
}

// Taxonomy names a customizable category list.
type Taxonomy string

const (
	// TaxonomyRooms holds room labels.
	TaxonomyRooms Taxonomy = "rooms"
	// TaxonomyVehicleTypes holds vehicle type labels.
	TaxonomyVehicleTypes Taxonomy = "vehicleTypes"
	// TaxonomyServiceTypes holds maintenance service type labels.
	TaxonomyServiceTypes Taxonomy = "serviceTypes"
	// TaxonomyPetTypes holds pet species labels.
	TaxonomyPetTypes Taxonomy = "petTypes"
	// TaxonomySubscriptionCategories holds subscription category labels.
	TaxonomySubscriptionCategories Taxonomy = "subscriptionCategories"
)

// Taxonomies lists every taxonomy in a fixed order.
var Taxonomies = []Taxonomy{
	TaxonomyRooms,
	TaxonomyVehicleTypes,
	TaxonomyServiceTypes,
	TaxonomyPetTypes,
	TaxonomySubscriptionCategories,
}

// StorageServer is a secondary blob storage endpoint.
type StorageServer struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	Trusted bool   `json:"trusted"`
}

// ExchangeRates caches fetched currency rates. Derived data, never synced.
type ExchangeRates struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt int64              `json:"fetchedAt"`
}

// PreferenceSnapshot is the complete preference document of one identity.
//
// Scalars are last-write-wins, the Custom*/HiddenDefault* lists are merged on
// sync, StorageServers and PrivateRelays only leave the device encrypted (with
// the fallbacks described on the publisher), and ExchangeRates stays local.
type PreferenceSnapshot struct {
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

	StorageServers []StorageServer `json:"storageServers"`
	PrivateRelays  []string        `json:"privateRelays"`

	ExchangeRates *ExchangeRates `json:"exchangeRates,omitempty"`
}

// DefaultPreferences returns the hard-coded defaults for a new identity.
// The active tab set starts empty so that a fresh device adopts the remote
// copy on its first sync.
func DefaultPreferences() PreferenceSnapshot {
	return PreferenceSnapshot{
		Version:    CurrentSchemaVersion,
		ActiveTabs: []string{},
		TabViewModes: map[string]string{
			"appliances":  "cards",
			"vehicles":    "cards",
			"maintenance": "list",
			"pets":        "cards",
		},
		Theme:           "system",
		Currency:        "USD",
		DistanceUnit:    "mi",
		TemperatureUnit: "F",

		CustomRooms:                         []string{},
		HiddenDefaultRooms:                  []string{},
		CustomVehicleTypes:                  []string{},
		HiddenDefaultVehicleTypes:           []string{},
		CustomServiceTypes:                  []string{},
		HiddenDefaultServiceTypes:           []string{},
		CustomPetTypes:                      []string{},
		HiddenDefaultPetTypes:               []string{},
		CustomSubscriptionCategories:        []string{},
		HiddenDefaultSubscriptionCategories: []string{},

		StorageServers: []StorageServer{},
		PrivateRelays:  []string{},
	}
}

// Lists returns pointers to the custom and hidden-default lists of t.
// Both are nil for an unknown taxonomy.
func (p *PreferenceSnapshot) Lists(t Taxonomy) (custom, hidden *[]string) {
	switch t {
	case TaxonomyRooms:
		return &p.CustomRooms, &p.HiddenDefaultRooms
	case TaxonomyVehicleTypes:
		return &p.CustomVehicleTypes, &p.HiddenDefaultVehicleTypes
	case TaxonomyServiceTypes:
		return &p.CustomServiceTypes, &p.HiddenDefaultServiceTypes
	case TaxonomyPetTypes:
		return &p.CustomPetTypes, &p.HiddenDefaultPetTypes
	case TaxonomySubscriptionCategories:
		return &p.CustomSubscriptionCategories, &p.HiddenDefaultSubscriptionCategories
	}
	return nil, nil
}

// ListFields returns every merge-on-sync list in a fixed order, so that the
// same index addresses the same field on two snapshots.
func (p *PreferenceSnapshot) ListFields() []*[]string {
	fields := make([]*[]string, 0, 2*len(Taxonomies))
	for _, t := range Taxonomies {
		custom, hidden := p.Lists(t)
		fields = append(fields, custom, hidden)
	}
	return fields
}

// BackfillDefaults fills every zero-valued field from DefaultPreferences and
// bumps the schema version. Explicitly empty lists are kept as they are.
func (p *PreferenceSnapshot) BackfillDefaults() {
	d := DefaultPreferences()

	if p.Version < CurrentSchemaVersion {
		p.Version = CurrentSchemaVersion
	}
	if p.ActiveTabs == nil {
		p.ActiveTabs = d.ActiveTabs
	}
	if p.TabViewModes == nil {
		p.TabViewModes = d.TabViewModes
	} else {
		for view, mode := range d.TabViewModes {
			if _, ok := p.TabViewModes[view]; !ok {
				p.TabViewModes[view] = mode
			}
		}
	}
	if p.Theme == "" {
		p.Theme = d.Theme
	}
	if p.Currency == "" {
		p.Currency = d.Currency
	}
	if p.DistanceUnit == "" {
		p.DistanceUnit = d.DistanceUnit
	}
	if p.TemperatureUnit == "" {
		p.TemperatureUnit = d.TemperatureUnit
	}
	for _, f := range p.ListFields() {
		if *f == nil {
			*f = []string{}
		}
	}
	if p.StorageServers == nil {
		p.StorageServers = d.StorageServers
	}
	if p.PrivateRelays == nil {
		p.PrivateRelays = d.PrivateRelays
	}
}

// Clone returns a deep copy of p.
func (p PreferenceSnapshot) Clone() PreferenceSnapshot {
	out := p
	out.ActiveTabs = cloneStrings(p.ActiveTabs)
	if p.TabViewModes != nil {
		out.TabViewModes = make(map[string]string, len(p.TabViewModes))
		for k, v := range p.TabViewModes {
			out.TabViewModes[k] = v
		}
	}
	src := p.ListFields()
	for i, f := range out.ListFields() {
		*f = cloneStrings(*src[i])
	}
	if p.StorageServers != nil {
		out.StorageServers = append([]StorageServer{}, p.StorageServers...)
	}
	out.PrivateRelays = cloneStrings(p.PrivateRelays)
	if p.ExchangeRates != nil {
		rates := *p.ExchangeRates
		if p.ExchangeRates.Rates != nil {
			rates.Rates = make(map[string]float64, len(p.ExchangeRates.Rates))
			for k, v := range p.ExchangeRates.Rates {
				rates.Rates[k] = v
			}
		}
		out.ExchangeRates = &rates
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
