package services

import "strings"

// StatDefinition describes one tracked activity type: how much XP a unit of
// it is worth and how it pulls the warrior/mage affinity axes.
type StatDefinition struct {
	Key           string   // canonical stat key
	XPWeight      int64
	WarriorWeight int64
	MageWeight    int64
	Aliases       []string
	Boolean       bool // accepts Yes/No tokens mapped to 1/0
}

// StatCatalog is an immutable lookup over stat definitions. Alias and
// canonical lookups are case-insensitive; the index is built once.
type StatCatalog struct {
	defs    []StatDefinition
	byKey   map[string]*StatDefinition
	byAlias map[string]*StatDefinition // lowercased alias or canonical → def
}

// DefaultStatDefinitions is the reference catalog (tunable via config later).
// No stat carries a templar weight — that axis is reserved.
var DefaultStatDefinitions = []StatDefinition{
	{
		Key:           "approaches",
		XPWeight:      100,
		WarriorWeight: 3,
		Aliases:       []string{"Approaches", "Approach"},
	},
	{
		Key:           "contacts",
		XPWeight:      150,
		WarriorWeight: 1,
		MageWeight:    2,
		Aliases:       []string{"Contacts", "Numbers", "Phone Numbers", "Numbers Closed"},
	},
	{
		Key:           "conversations",
		XPWeight:      120,
		WarriorWeight: 1,
		MageWeight:    1,
		Aliases:       []string{"Conversations", "Convos"},
	},
	{
		Key:           "instant_dates",
		XPWeight:      400,
		WarriorWeight: 2,
		MageWeight:    3,
		Aliases:       []string{"Instant Dates", "Insta Dates", "iDates"},
	},
	{
		Key:           "planned_dates",
		XPWeight:      500,
		WarriorWeight: 1,
		MageWeight:    4,
		Aliases:       []string{"Planned Dates", "Dates"},
	},
	{
		Key:           "closes",
		XPWeight:      1000,
		WarriorWeight: 2,
		MageWeight:    3,
		Aliases:       []string{"Closes", "Pulls"},
	},
	{
		Key:           "retention_streak",
		XPWeight:      50,
		MageWeight:    1,
		Aliases:       []string{"Retention Streak", "Retention", "Streak"},
		Boolean:       true,
	},
}

// NewStatCatalog builds the lookup index over the given definitions.
func NewStatCatalog(defs []StatDefinition) *StatCatalog {
	c := &StatCatalog{
		defs:    defs,
		byKey:   make(map[string]*StatDefinition, len(defs)),
		byAlias: make(map[string]*StatDefinition),
	}
	for i := range c.defs {
		def := &c.defs[i]
		c.byKey[def.Key] = def
		c.byAlias[strings.ToLower(def.Key)] = def
		for _, alias := range def.Aliases {
			c.byAlias[strings.ToLower(alias)] = def
		}
	}
	return c
}

// DefaultStatCatalog is the process-wide catalog built from the reference table.
var DefaultStatCatalog = NewStatCatalog(DefaultStatDefinitions)

// Resolve maps a raw submitted field name to its stat definition:
// exact canonical match first, then case-insensitive alias/canonical lookup.
func (c *StatCatalog) Resolve(raw string) (*StatDefinition, bool) {
	if def, ok := c.byKey[raw]; ok {
		return def, true
	}
	def, ok := c.byAlias[strings.ToLower(strings.TrimSpace(raw))]
	return def, ok
}

// Definitions returns the catalog entries in declaration order.
func (c *StatCatalog) Definitions() []StatDefinition {
	return c.defs
}
