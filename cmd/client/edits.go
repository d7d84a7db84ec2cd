package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/HomeKeeper/internal/client/prefs"
	"github.com/atinyakov/HomeKeeper/internal/models"
)

var errUsage = errors.New("usage")

var validate = validator.New()

// edit is a validated change to a snapshot.
type edit func(p *models.PreferenceSnapshot)

// scalar describes a settable scalar preference.
type scalar struct {
	rule string
	set  func(p *models.PreferenceSnapshot, v string)
}

var scalars = map[string]scalar{
	"theme":       {rule: "oneof=system light dark", set: func(p *models.PreferenceSnapshot, v string) { p.Theme = v }},
	"currency":    {rule: "iso4217", set: func(p *models.PreferenceSnapshot, v string) { p.Currency = v }},
	"distance":    {rule: "oneof=mi km", set: func(p *models.PreferenceSnapshot, v string) { p.DistanceUnit = v }},
	"temperature": {rule: "oneof=F C", set: func(p *models.PreferenceSnapshot, v string) { p.TemperatureUnit = v }},
}

// setScalar parses "set <name> <value>".
func setScalar(name, value string) (edit, error) {
	s, ok := scalars[name]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", name)
	}
	if name == "currency" {
		value = strings.ToUpper(value)
	}
	if err := validate.Var(value, s.rule); err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, value)
	}
	return func(p *models.PreferenceSnapshot) { s.set(p, value) }, nil
}

// setViewMode parses "view-mode <tab> <mode>".
func setViewMode(tab, mode string) (edit, error) {
	if tab != models.DefaultView && !slices.Contains(models.AvailableTabs, tab) {
		return nil, fmt.Errorf("unknown tab %q", tab)
	}
	if err := validate.Var(mode, "oneof=cards list table"); err != nil {
		return nil, fmt.Errorf("invalid view mode %q", mode)
	}
	return func(p *models.PreferenceSnapshot) {
		if p.TabViewModes == nil {
			p.TabViewModes = map[string]string{}
		}
		p.TabViewModes[tab] = mode
	}, nil
}

// toggleTab enables or disables a feature tab.
func toggleTab(tab string, enable bool) (edit, error) {
	if !slices.Contains(models.AvailableTabs, tab) {
		return nil, fmt.Errorf("unknown tab %q (available: %s)", tab, strings.Join(models.AvailableTabs, ", "))
	}
	return func(p *models.PreferenceSnapshot) {
		i := slices.Index(p.ActiveTabs, tab)
		switch {
		case enable && i < 0:
			p.ActiveTabs = append(p.ActiveTabs, tab)
		case !enable && i >= 0:
			p.ActiveTabs = slices.Delete(p.ActiveTabs, i, i+1)
		}
	}, nil
}

// listOp is one of add, remove, hide, unhide.
func listOp(op, taxonomy, label string) (edit, error) {
	t := models.Taxonomy(taxonomy)
	if !slices.Contains(models.Taxonomies, t) {
		names := make([]string, len(models.Taxonomies))
		for i, t := range models.Taxonomies {
			names[i] = string(t)
		}
		return nil, fmt.Errorf("unknown list %q (available: %s)", taxonomy, strings.Join(names, ", "))
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errors.New("label must not be empty")
	}

	var apply func(custom, hidden *[]string)
	switch op {
	case "add":
		apply = func(custom, _ *[]string) { *custom = append(*custom, label) }
	case "remove":
		apply = func(custom, _ *[]string) { *custom = removeLabel(*custom, label) }
	case "hide":
		apply = func(_, hidden *[]string) { *hidden = append(*hidden, label) }
	case "unhide":
		apply = func(_, hidden *[]string) { *hidden = removeLabel(*hidden, label) }
	default:
		return nil, fmt.Errorf("%w: list add|remove|hide|unhide <list> <label>", errUsage)
	}
	return func(p *models.PreferenceSnapshot) {
		apply(p.Lists(t))
	}, nil
}

func removeLabel(list []string, label string) []string {
	return slices.DeleteFunc(list, func(s string) bool { return prefs.SameLabel(s, label) })
}

// relayOp adds or removes a private relay.
func relayOp(op, url string) (edit, error) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if err := validate.Var(url, "required,url"); err != nil {
		return nil, fmt.Errorf("invalid relay url %q", url)
	}
	switch op {
	case "add":
		return func(p *models.PreferenceSnapshot) {
			if !slices.Contains(p.PrivateRelays, url) {
				p.PrivateRelays = append(p.PrivateRelays, url)
			}
		}, nil
	case "remove":
		return func(p *models.PreferenceSnapshot) {
			p.PrivateRelays = slices.DeleteFunc(p.PrivateRelays, func(s string) bool { return s == url })
		}, nil
	}
	return nil, fmt.Errorf("%w: relay add|remove <url>", errUsage)
}

// storageOp adds, removes, enables or disables a storage server.
func storageOp(op, url string, trusted bool) (edit, error) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if err := validate.Var(url, "required,http_url"); err != nil {
		return nil, fmt.Errorf("invalid storage server url %q", url)
	}
	find := func(p *models.PreferenceSnapshot) int {
		return slices.IndexFunc(p.StorageServers, func(s models.StorageServer) bool { return s.URL == url })
	}
	switch op {
	case "add":
		return func(p *models.PreferenceSnapshot) {
			if i := find(p); i >= 0 {
				p.StorageServers[i].Enabled = true
				p.StorageServers[i].Trusted = trusted
				return
			}
			p.StorageServers = append(p.StorageServers, models.StorageServer{URL: url, Enabled: true, Trusted: trusted})
		}, nil
	case "remove":
		return func(p *models.PreferenceSnapshot) {
			if i := find(p); i >= 0 {
				p.StorageServers = slices.Delete(p.StorageServers, i, i+1)
			}
		}, nil
	case "enable", "disable":
		return func(p *models.PreferenceSnapshot) {
			if i := find(p); i >= 0 {
				p.StorageServers[i].Enabled = op == "enable"
			}
		}, nil
	}
	return nil, fmt.Errorf("%w: storage add|remove|enable|disable <url>", errUsage)
}
