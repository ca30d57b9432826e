package document

import "sort"

// Filter selects documents by exact client name and type. Zero fields
// match everything.
type Filter struct {
	Client string
	Type   Type
}

// Match reports whether the document passes the filter
func (f Filter) Match(doc *Document) bool {
	if f.Client != "" && doc.Client != f.Client {
		return false
	}
	if f.Type != "" && doc.Type != f.Type {
		return false
	}
	return true
}

// Apply returns the matching documents in their original order
func (f Filter) Apply(docs []*Document) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		if f.Match(doc) {
			out = append(out, doc)
		}
	}
	return out
}

// TypeGroup holds the documents of one client sharing one type
type TypeGroup struct {
	Type      Type
	Label     string
	Documents []*Document
}

// HasLines reports whether any document in the group has line items
func (g TypeGroup) HasLines() bool {
	for _, doc := range g.Documents {
		if doc.HasLines() {
			return true
		}
	}
	return false
}

// ClientGroup holds one client's documents split by type
type ClientGroup struct {
	Client string
	Types  []TypeGroup
}

// Count returns the number of documents across all of the client's types
func (c ClientGroup) Count() int {
	n := 0
	for _, g := range c.Types {
		n += len(g.Documents)
	}
	return n
}

// GroupedView is the aggregated form of a document history
type GroupedView struct {
	// All keeps insertion order
	All []*Document
	// Clients is sorted by client name, and each client's types by type key
	Clients []ClientGroup
}

// Group partitions documents by client and then by type. Keys compare
// by exact string equality.
func Group(docs []*Document, catalog *Catalog) GroupedView {
	byClient := make(map[string]map[Type][]*Document)
	for _, doc := range docs {
		types, ok := byClient[doc.Client]
		if !ok {
			types = make(map[Type][]*Document)
			byClient[doc.Client] = types
		}
		types[doc.Type] = append(types[doc.Type], doc)
	}

	clients := make([]string, 0, len(byClient))
	for name := range byClient {
		clients = append(clients, name)
	}
	sort.Strings(clients)

	view := GroupedView{
		All:     docs,
		Clients: make([]ClientGroup, 0, len(clients)),
	}
	for _, name := range clients {
		types := byClient[name]
		keys := make([]Type, 0, len(types))
		for t := range types {
			keys = append(keys, t)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		group := ClientGroup{Client: name, Types: make([]TypeGroup, 0, len(keys))}
		for _, t := range keys {
			group.Types = append(group.Types, TypeGroup{
				Type:      t,
				Label:     catalog.Label(t),
				Documents: types[t],
			})
		}
		view.Clients = append(view.Clients, group)
	}
	return view
}
