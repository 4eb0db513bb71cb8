package model

// Instance is the network and demand catalogue of one problem.
type Instance struct {
	Service []Link   `json:"service_links" yaml:"service_links"`
	Rider   []Link   `json:"demand_links" yaml:"demand_links"`
	Demands []Demand `json:"demands" yaml:"demands"`
}
