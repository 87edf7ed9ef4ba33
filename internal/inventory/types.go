package inventory

import "time"

// ObjectType identifies one of the ten managed object kinds on a Jamf
// server. The numeric order is the canonical enumeration order used for
// report sections and removal confirmation.
type ObjectType int

const (
	TypeComputer ObjectType = iota
	TypeComputerGroup
	TypePackage
	TypeScript
	TypePolicy
	TypeComputerConfigurationProfile
	TypeMobileDevice
	TypeMobileDeviceGroup
	TypeMobileDeviceConfigurationProfile
	TypeMobileApplication

	numObjectTypes
)

var typeNames = [numObjectTypes]string{
	TypeComputer:                         "Computer",
	TypeComputerGroup:                    "ComputerGroup",
	TypePackage:                          "Package",
	TypeScript:                           "Script",
	TypePolicy:                           "Policy",
	TypeComputerConfigurationProfile:     "ComputerConfigurationProfile",
	TypeMobileDevice:                     "MobileDevice",
	TypeMobileDeviceGroup:                "MobileDeviceGroup",
	TypeMobileDeviceConfigurationProfile: "MobileDeviceConfigurationProfile",
	TypeMobileApplication:                "MobileApplication",
}

var typePlurals = [numObjectTypes]string{
	TypeComputer:                         "Computers",
	TypeComputerGroup:                    "ComputerGroups",
	TypePackage:                          "Packages",
	TypeScript:                           "Scripts",
	TypePolicy:                           "Policies",
	TypeComputerConfigurationProfile:     "ComputerConfigurationProfiles",
	TypeMobileDevice:                     "MobileDevices",
	TypeMobileDeviceGroup:                "MobileDeviceGroups",
	TypeMobileDeviceConfigurationProfile: "MobileDeviceConfigurationProfiles",
	TypeMobileApplication:                "MobileApplications",
}

// String returns the canonical (singular) type name. This is also the
// element tag used in the interchange document.
func (t ObjectType) String() string {
	if t < 0 || t >= numObjectTypes {
		return "Unknown"
	}
	return typeNames[t]
}

// Plural returns the section name for the type, e.g. "Policies".
func (t ObjectType) Plural() string {
	if t < 0 || t >= numObjectTypes {
		return "Unknown"
	}
	return typePlurals[t]
}

// Valid reports whether t is one of the ten recognized kinds.
func (t ObjectType) Valid() bool {
	return t >= 0 && t < numObjectTypes
}

// ParseObjectType maps a canonical type name back to its ObjectType.
// Matching is case-sensitive and exact; anything else is rejected.
func ParseObjectType(name string) (ObjectType, bool) {
	for i, n := range typeNames {
		if n == name {
			return ObjectType(i), true
		}
	}
	return -1, false
}

// AllTypes returns the ten object types in enumeration order.
func AllTypes() []ObjectType {
	types := make([]ObjectType, numObjectTypes)
	for i := range types {
		types[i] = ObjectType(i)
	}
	return types
}

// ManagedObject is a single inventory object. Identity is (Type, ID);
// names are not unique and must never be used as a removal key.
type ManagedObject struct {
	Type   ObjectType
	ID     int
	Name   string
	Detail *Detail
}

// Detail is the normalized per-object detail payload. Only the fields
// relevant to the object's type are populated; the rest stay zero.
type Detail struct {
	// Packages and mobile applications.
	Version string

	// Groups.
	MemberCount      int
	NestedGroupNames []string // smart-group criteria referencing other groups, by name
	Smart            bool

	// Policies.
	Enabled    bool
	PackageIDs []int
	ScriptIDs  []int

	// Policies, profiles, and mobile applications.
	Scope *Scope

	// Computers and mobile devices.
	LastCheckIn *time.Time
	OSVersion   string
}

// Scope is the target set of a policy, profile, or mobile application.
type Scope struct {
	AllTargets        bool
	GroupIDs          []int
	TargetIDs         []int // individually scoped computers or devices
	ExclusionGroupIDs []int
}

// Empty reports whether the scope resolves to no targets at all.
// Exclusions alone do not make a scope non-empty.
func (s *Scope) Empty() bool {
	if s == nil {
		return true
	}
	return !s.AllTargets && len(s.GroupIDs) == 0 && len(s.TargetIDs) == 0
}

// Snapshot is the point-in-time object inventory a single invocation
// operates on. It is built once by the Fetcher and read-only afterward.
type Snapshot struct {
	Objects map[ObjectType][]ManagedObject
}

// ObjectsOf returns the fetched objects of one type, or nil when the
// type was not part of the snapshot.
func (s *Snapshot) ObjectsOf(t ObjectType) []ManagedObject {
	if s == nil || s.Objects == nil {
		return nil
	}
	return s.Objects[t]
}

// Lookup finds an object by identity within the snapshot.
func (s *Snapshot) Lookup(t ObjectType, id int) (ManagedObject, bool) {
	for _, obj := range s.ObjectsOf(t) {
		if obj.ID == id {
			return obj, true
		}
	}
	return ManagedObject{}, false
}
