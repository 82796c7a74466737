package domain

import "time"

// EntityID / CreatedTime / WithMeta let the generic store and service
// layers handle identity and timestamps uniformly across collections.

func (p Project) EntityID() string        { return p.ID }
func (p Project) CreatedTime() time.Time  { return p.CreatedAt }
func (p Project) WithMeta(id string, created, updated time.Time) Project {
	p.ID, p.CreatedAt, p.UpdatedAt = id, created, updated
	return p
}

func (s Skill) EntityID() string       { return s.ID }
func (s Skill) CreatedTime() time.Time { return s.CreatedAt }
func (s Skill) WithMeta(id string, created, updated time.Time) Skill {
	s.ID, s.CreatedAt, s.UpdatedAt = id, created, updated
	return s
}

func (c Certificate) EntityID() string       { return c.ID }
func (c Certificate) CreatedTime() time.Time { return c.CreatedAt }
func (c Certificate) WithMeta(id string, created, updated time.Time) Certificate {
	c.ID, c.CreatedAt, c.UpdatedAt = id, created, updated
	return c
}

func (m ContactMessage) EntityID() string       { return m.ID }
func (m ContactMessage) CreatedTime() time.Time { return m.CreatedAt }
func (m ContactMessage) WithMeta(id string, created, updated time.Time) ContactMessage {
	m.ID, m.CreatedAt, m.UpdatedAt = id, created, updated
	return m
}

func (n Notification) EntityID() string       { return n.ID }
func (n Notification) CreatedTime() time.Time { return n.CreatedAt }
func (n Notification) WithMeta(id string, created, updated time.Time) Notification {
	n.ID, n.CreatedAt, n.UpdatedAt = id, created, updated
	return n
}
