package inventory

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/rolerun/common"
	"github.com/mensylisir/rolerun/loader"
)

// Inventory is the resolved set of hosts and host-groups for a session.
// It is built exactly once, at session construction, and never rebuilt.
type Inventory struct {
	hosts  []*Host
	byName map[string]*Host
	groups map[string][]*Host
}

func newInventory() *Inventory {
	return &Inventory{
		byName: make(map[string]*Host),
		groups: make(map[string][]*Host),
	}
}

// inventoryFile is the on-disk inventory document shape.
type inventoryFile struct {
	Hosts  []*Host             `yaml:"hosts"`
	Groups map[string][]string `yaml:"groups,omitempty"`
}

// FromHostList builds an inventory from literal host identifiers of the
// forms "addr", "addr:port" and "user@addr[:port]". A nil or empty list
// yields an empty inventory.
func FromHostList(identifiers []string) (*Inventory, error) {
	inv := newInventory()
	for _, id := range identifiers {
		host, err := parseIdentifier(id)
		if err != nil {
			return nil, err
		}
		if err := inv.add(host); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// FromFile builds an inventory from a YAML inventory file loaded through the
// given data loader.
func FromFile(dl *loader.DataLoader, path string) (*Inventory, error) {
	if dl == nil {
		return nil, errors.New("inventory: data loader is nil")
	}
	var doc inventoryFile
	if err := dl.LoadYAML(path, &doc); err != nil {
		return nil, errors.Wrap(err, "inventory: failed to load inventory file")
	}

	inv := newInventory()
	for _, host := range doc.Hosts {
		if host == nil {
			continue
		}
		host.applyDefaults()
		if err := inv.add(host); err != nil {
			return nil, err
		}
	}

	for group, members := range doc.Groups {
		if strings.TrimSpace(group) == common.GroupAll {
			return nil, errors.Errorf("inventory: group '%s' is implicit and cannot be redefined", common.GroupAll)
		}
		for _, name := range members {
			host, ok := inv.byName[strings.TrimSpace(name)]
			if !ok {
				return nil, errors.Errorf("inventory: group '%s' references unknown host '%s'", group, name)
			}
			if host.InGroup(group) {
				continue
			}
			host.AddGroup(group)
			inv.groups[group] = append(inv.groups[group], host)
		}
	}

	return inv, nil
}

func parseIdentifier(id string) (*Host, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, errors.New("inventory: host identifier is empty")
	}

	host := NewHost()
	host.Name = trimmed

	rest := trimmed
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		host.User = rest[:at]
		rest = rest[at+1:]
		if host.User == "" || rest == "" {
			return nil, errors.Errorf("inventory: malformed host identifier '%s'", id)
		}
	}

	if addr, portStr, err := net.SplitHostPort(rest); err == nil {
		port, convErr := strconv.Atoi(portStr)
		if convErr != nil || port <= 0 || port > 65535 {
			return nil, errors.Errorf("inventory: invalid port in host identifier '%s'", id)
		}
		host.Address = addr
		host.Port = port
	} else {
		host.Address = rest
	}

	if err := host.Validate(); err != nil {
		return nil, errors.Wrapf(err, "inventory: invalid host identifier '%s'", id)
	}
	return host, nil
}

func (i *Inventory) add(h *Host) error {
	if err := h.Validate(); err != nil {
		return errors.Wrap(err, "inventory: invalid host")
	}
	id := h.ID()
	if _, exists := i.byName[id]; exists {
		return errors.Errorf("inventory: duplicate host '%s'", id)
	}
	i.byName[id] = h
	i.hosts = append(i.hosts, h)
	for _, group := range h.Groups() {
		i.groups[group] = append(i.groups[group], h)
	}
	return nil
}

// Hosts returns every host in declaration order. The slice is a copy; the
// hosts are shared.
func (i *Inventory) Hosts() []*Host {
	hostsCopy := make([]*Host, len(i.hosts))
	copy(hostsCopy, i.hosts)
	return hostsCopy
}

// Host looks up a host by its identifier.
func (i *Inventory) Host(name string) (*Host, bool) {
	h, ok := i.byName[strings.TrimSpace(name)]
	return h, ok
}

// Groups returns the group table. Keys and slices are copies.
func (i *Inventory) Groups() map[string][]*Host {
	groupsCopy := make(map[string][]*Host, len(i.groups))
	for group, members := range i.groups {
		membersCopy := make([]*Host, len(members))
		copy(membersCopy, members)
		groupsCopy[group] = membersCopy
	}
	return groupsCopy
}

// Len returns the number of hosts.
func (i *Inventory) Len() int {
	return len(i.hosts)
}

// Select resolves a host selector to a host subset. The selector is "all",
// a group name, a host identifier, or a comma-separated union of those.
// Unknown names resolve to nothing: an empty selection is not an error at
// this layer, the backend decides what a zero-host run means.
func (i *Inventory) Select(pattern string) []*Host {
	var selected []*Host
	seen := make(map[string]bool)

	appendHost := func(h *Host) {
		if !seen[h.ID()] {
			seen[h.ID()] = true
			selected = append(selected, h)
		}
	}

	for _, part := range strings.Split(pattern, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			continue
		case part == common.GroupAll:
			for _, h := range i.hosts {
				appendHost(h)
			}
		default:
			if members, ok := i.groups[part]; ok {
				for _, h := range members {
					appendHost(h)
				}
			} else if h, ok := i.byName[part]; ok {
				appendHost(h)
			}
		}
	}
	return selected
}
