package model

// EntityKind mirrors the control plane's managed-object type tags.
type EntityKind string

const (
	KindDatacenter EntityKind = "Datacenter"
	KindCluster    EntityKind = "ClusterComputeResource"
	KindHost       EntityKind = "HostSystem"
	KindVM         EntityKind = "VirtualMachine"
	KindFolder     EntityKind = "Folder"
	KindVApp       EntityKind = "VirtualApp"
)

// EntityRef identifies one managed object in the control-plane inventory.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// VM is a virtual machine as seen during the inventory walk.
type VM struct {
	Ref       EntityRef
	PoweredOn bool
}

// Host is a hypervisor host and the VMs it currently runs.
type Host struct {
	Ref       EntityRef
	PoweredOn bool
	VMs       []VM
}

// Cluster groups hosts under one compute resource.
type Cluster struct {
	Ref   EntityRef
	Hosts []Host
}

// Datacenter is the top of the traversed hierarchy.
type Datacenter struct {
	Ref      EntityRef
	Clusters []Cluster
}
