package schedule

import "fmt"

// Index is the read-only schedule lookup the tracking core matches against.
// Built once at startup, never mutated afterwards
type Index struct {
	routes map[string]*Route
	blocks map[string]*Block
	trips  map[string]*Trip

	tripBlock map[string]*Block

	activeServices map[string]bool
}

func NewIndex(routes []*Route, blocks []*Block, activeServices []string) *Index {
	index := &Index{
		routes: map[string]*Route{},
		blocks: map[string]*Block{},
		trips:  map[string]*Trip{},

		tripBlock: map[string]*Block{},

		activeServices: map[string]bool{},
	}

	for _, route := range routes {
		index.routes[route.ID] = route
	}

	for _, block := range blocks {
		index.blocks[blockKey(block.ServiceID, block.ID)] = block

		for _, trip := range block.Trips {
			index.trips[trip.ID] = trip
			index.tripBlock[trip.ID] = block
		}
	}

	for _, serviceID := range activeServices {
		index.activeServices[serviceID] = true
	}

	return index
}

func blockKey(serviceID string, blockID string) string {
	return fmt.Sprintf("%s:%s", serviceID, blockID)
}

func (i *Index) Block(serviceID string, blockID string) *Block {
	return i.blocks[blockKey(serviceID, blockID)]
}

func (i *Index) Trip(tripID string) *Trip {
	return i.trips[tripID]
}

// BlockForTrip returns the block the trip runs within
func (i *Index) BlockForTrip(tripID string) *Block {
	return i.tripBlock[tripID]
}

func (i *Index) Route(routeID string) *Route {
	return i.routes[routeID]
}

func (i *Index) RouteByShortName(shortName string) *Route {
	for _, route := range i.routes {
		if route.ShortName == shortName {
			return route
		}
	}

	return nil
}

func (i *Index) TripByShortName(shortName string) *Trip {
	for _, trip := range i.trips {
		if trip.ShortName == shortName {
			return trip
		}
	}

	return nil
}

// ActiveBlocks returns every block whose service is running today
func (i *Index) ActiveBlocks() []*Block {
	var active []*Block

	for _, block := range i.blocks {
		if i.activeServices[block.ServiceID] {
			active = append(active, block)
		}
	}

	return active
}

// BlocksForRoute returns the active blocks containing at least one trip on
// the route
func (i *Index) BlocksForRoute(routeID string) []*Block {
	var matching []*Block

	for _, block := range i.ActiveBlocks() {
		for _, trip := range block.Trips {
			if trip.RouteID == routeID {
				matching = append(matching, block)
				break
			}
		}
	}

	return matching
}

func (i *Index) StopPath(tripID string, stopPathIndex int) *StopPath {
	trip := i.trips[tripID]
	if trip == nil {
		return nil
	}

	if stopPathIndex < 0 || stopPathIndex >= len(trip.StopPaths) {
		return nil
	}

	return trip.StopPaths[stopPathIndex]
}
