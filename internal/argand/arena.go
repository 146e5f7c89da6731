// Package argand keeps coherent fraction and position results as points in
// named groups and aggregates each group into one complex-plane vector.
package argand

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/HamletTheHamster/nixsw/internal/dataio"
)

// DefaultError replaces a blank Pc or Fc error of an added point.
const DefaultError = 1e-4

// minFraction is the Fc below which a point is added unchecked, and the
// smallest error accepted for averaging.
const minFraction = 1e-8

var ErrNotFound = errors.New("argand: no such group or point")

// Group owns an ordered set of points. Its Pc, Fc and errors are kept as
// the aggregate of its checked points.
type Group struct {
	ID      uuid.UUID
	Checked bool
	Record  dataio.Record
	points  []uuid.UUID
}

type Point struct {
	ID      uuid.UUID
	Group   uuid.UUID
	Checked bool
	Record  dataio.Record
}

// Arena holds every group and point, addressed by ID.
type Arena struct {
	order  []uuid.UUID
	groups map[uuid.UUID]*Group
	points map[uuid.UUID]*Point
}

func NewArena() *Arena {
	return &Arena{
		groups: map[uuid.UUID]*Group{},
		points: map[uuid.UUID]*Point{},
	}
}

func groupDefaults() dataio.Record {
	return dataio.Record{"Name": "NewGroup", "Symbol": "+", "Color": "(0, 0, 0)"}
}

func pointDefaults() dataio.Record {
	return dataio.Record{"Name": "NewDataPoint", "Symbol": "o", "Color": "(0, 0, 0)", "Path": ""}
}

func merge(defaults, rec dataio.Record) dataio.Record {
	for k, v := range rec {
		defaults[k] = v
	}
	return defaults
}

// AddGroup appends a checked, empty group.
func (a *Arena) AddGroup(rec dataio.Record) uuid.UUID {

	g := &Group{ID: uuid.New(), Checked: true, Record: merge(groupDefaults(), rec)}
	a.groups[g.ID] = g
	a.order = append(a.order, g.ID)
	a.aggregate(g)
	return g.ID
}

func (a *Arena) Groups() []*Group {
	gs := make([]*Group, len(a.order))
	for i, id := range a.order {
		gs[i] = a.groups[id]
	}
	return gs
}

func (a *Arena) Group(id uuid.UUID) (*Group, error) {
	g, ok := a.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	return g, nil
}

// GroupByName returns the first group with the given name.
func (a *Arena) GroupByName(name string) (*Group, bool) {
	for _, id := range a.order {
		if g := a.groups[id]; g.Record["Name"] == name {
			return g, true
		}
	}
	return nil, false
}

func (a *Arena) Point(id uuid.UUID) (*Point, error) {
	p, ok := a.points[id]
	if !ok {
		return nil, fmt.Errorf("%w: point %s", ErrNotFound, id)
	}
	return p, nil
}

// Points returns the points of a group in insertion order.
func (a *Arena) Points(group uuid.UUID) ([]*Point, error) {

	g, err := a.Group(group)
	if err != nil {
		return nil, err
	}
	ps := make([]*Point, len(g.points))
	for i, id := range g.points {
		ps[i] = a.points[id]
	}
	return ps, nil
}

// AddPoint adds a fit result to a group and re-aggregates it. Blank errors
// become DefaultError. A point without a position or with a vanishing
// fraction is added unchecked.
func (a *Arena) AddPoint(group uuid.UUID, rec dataio.Record) (uuid.UUID, error) {
	return a.addPoint(group, rec, true)
}

func (a *Arena) addPoint(group uuid.UUID, rec dataio.Record, checked bool) (uuid.UUID, error) {

	g, err := a.Group(group)
	if err != nil {
		return uuid.Nil, err
	}

	rec = merge(pointDefaults(), rec)
	for _, k := range []string{"Pc_err", "Fc_err"} {
		if rec[k] == "" {
			rec.SetFloat(k, DefaultError)
		}
	}
	if fc, ok := rec.Float("Fc"); rec["Pc"] == dataio.Missing || !ok || fc < minFraction {
		checked = false
	}

	p := &Point{ID: uuid.New(), Group: group, Checked: checked, Record: rec}
	a.points[p.ID] = p
	g.points = append(g.points, p.ID)
	a.aggregate(g)
	return p.ID, nil
}

// Move transfers a point to another group; both groups are re-aggregated.
func (a *Arena) Move(point, group uuid.UUID) error {

	p, err := a.Point(point)
	if err != nil {
		return err
	}
	to, err := a.Group(group)
	if err != nil {
		return err
	}
	from := a.groups[p.Group]
	from.points = without(from.points, point)
	to.points = append(to.points, point)
	p.Group = group
	a.aggregate(from)
	a.aggregate(to)
	return nil
}

func (a *Arena) RemovePoint(id uuid.UUID) error {

	p, err := a.Point(id)
	if err != nil {
		return err
	}
	g := a.groups[p.Group]
	g.points = without(g.points, id)
	delete(a.points, id)
	a.aggregate(g)
	return nil
}

// RemoveGroup deletes a group together with its points.
func (a *Arena) RemoveGroup(id uuid.UUID) error {

	g, err := a.Group(id)
	if err != nil {
		return err
	}
	for _, p := range g.points {
		delete(a.points, p)
	}
	delete(a.groups, id)
	a.order = without(a.order, id)
	return nil
}

// SetChecked toggles a group or a point. Unchecked points do not take part
// in their group's aggregate.
func (a *Arena) SetChecked(id uuid.UUID, checked bool) error {

	if g, ok := a.groups[id]; ok {
		g.Checked = checked
		return nil
	}
	p, err := a.Point(id)
	if err != nil {
		return err
	}
	p.Checked = checked
	a.aggregate(a.groups[p.Group])
	return nil
}

// Update replaces fields of a point and re-aggregates its group.
func (a *Arena) Update(id uuid.UUID, fields dataio.Record) error {

	p, err := a.Point(id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		p.Record[k] = v
	}
	a.aggregate(a.groups[p.Group])
	return nil
}

// RegroupBySlice moves the given points, and the points of the given
// groups, into one new group per slice number named "NN_suffix". The
// given groups are removed afterwards.
func (a *Arena) RegroupBySlice(ids []uuid.UUID, suffix string) ([]uuid.UUID, error) {

	var (
		selected []uuid.UUID
		emptied  []uuid.UUID
		seen     = map[uuid.UUID]bool{}
	)
	for _, id := range ids {
		if g, ok := a.groups[id]; ok {
			for _, p := range g.points {
				if !seen[p] {
					seen[p] = true
					selected = append(selected, p)
				}
			}
			emptied = append(emptied, id)
			continue
		}
		if _, err := a.Point(id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			selected = append(selected, id)
		}
	}

	bySlice := map[int][]uuid.UUID{}
	for _, id := range selected {
		s, ok := a.points[id].Record.Float("Slice nb")
		if !ok {
			return nil, fmt.Errorf("point %q has no slice number", a.points[id].Record["Name"])
		}
		bySlice[int(s)] = append(bySlice[int(s)], id)
	}
	slices := make([]int, 0, len(bySlice))
	for s := range bySlice {
		slices = append(slices, s)
	}
	sort.Ints(slices)

	var created []uuid.UUID
	for _, s := range slices {
		c := int(255 * float64(s) / float64(len(slices)))
		c = int(math.Max(0, math.Min(255, float64(c))))
		color := fmt.Sprintf("(%d, %d, %d)", c, 0, 255-c)
		gid := a.AddGroup(dataio.Record{"Name": fmt.Sprintf("%02d_%s", s, suffix), "Color": color})
		for _, p := range bySlice[s] {
			a.points[p].Record["Color"] = color
			if err := a.Move(p, gid); err != nil {
				return nil, err
			}
		}
		created = append(created, gid)
	}
	for _, id := range emptied {
		if err := a.RemoveGroup(id); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// LiveGroupName is the group a result of the data folder dir is added to:
// the last two folder names and the yield component.
func LiveGroupName(dir, component string) string {
	dir = filepath.Clean(dir)
	last := filepath.Base(dir)
	parent := filepath.Base(filepath.Dir(dir))
	return parent + "/" + last + "_" + component
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
