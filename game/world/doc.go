// Package world provides the occupancy grid and drone state shared by the
// planner, the mission engine and the outer layers.
//
// The world package implements:
//   - Cell coordinates and the Free/Obstacle/NoFly classification
//   - A square occupancy grid with neighbour queries and in-place mutation
//   - Seedable random grid generation and text layouts
//   - The drone's position, battery, path history and visited set
//
// Core Types:
//
// Grid is the mission map. Its shape is fixed at construction; its contents
// only change through SetCell and ToggleObstacle. Drone tracks a single agent
// and is mutated one step at a time by Move.
//
// Usage:
//
//	grid, err := world.ParseLayout([]string{
//		"HFFF",
//		"FOOF",
//		"FFNF",
//		"FFFF",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	drone, err := world.NewDrone(world.Cell{Row: 0, Col: 0}, 100, 1)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, next := range grid.Neighbors(drone.Position()) {
//		if drone.Move(next) {
//			break
//		}
//	}
package world
