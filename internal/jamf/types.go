package jamf

// Summary list payloads. The Classic API wraps each type's listing in
// a plural element containing id/name pairs; the wrapper and entry tag
// names vary per type, so lists are decoded entry by entry.

type listEntry struct {
	ID   int    `xml:"id"`
	Name string `xml:"name"`
}

// Detail payloads. Only the fields the classifiers and the usage graph
// consume are decoded; everything else in the (large) Classic API
// responses is ignored.

type idRef struct {
	ID int `xml:"id"`
}

type policyDetail struct {
	General struct {
		ID      int    `xml:"id"`
		Name    string `xml:"name"`
		Enabled bool   `xml:"enabled"`
	} `xml:"general"`
	PackageConfiguration struct {
		Packages []idRef `xml:"packages>package"`
	} `xml:"package_configuration"`
	Scripts []idRef       `xml:"scripts>script"`
	Scope   computerScope `xml:"scope"`
}

type computerScope struct {
	AllComputers   bool    `xml:"all_computers"`
	Computers      []idRef `xml:"computers>computer"`
	ComputerGroups []idRef `xml:"computer_groups>computer_group"`
	Exclusions     struct {
		ComputerGroups []idRef `xml:"computer_groups>computer_group"`
	} `xml:"exclusions"`
}

type mobileScope struct {
	AllMobileDevices   bool    `xml:"all_mobile_devices"`
	MobileDevices      []idRef `xml:"mobile_devices>mobile_device"`
	MobileDeviceGroups []idRef `xml:"mobile_device_groups>mobile_device_group"`
	Exclusions         struct {
		MobileDeviceGroups []idRef `xml:"mobile_device_groups>mobile_device_group"`
	} `xml:"exclusions"`
}

type osxProfileDetail struct {
	General struct {
		ID   int    `xml:"id"`
		Name string `xml:"name"`
	} `xml:"general"`
	Scope computerScope `xml:"scope"`
}

type mobileProfileDetail struct {
	General struct {
		ID   int    `xml:"id"`
		Name string `xml:"name"`
	} `xml:"general"`
	Scope mobileScope `xml:"scope"`
}

type mobileAppDetail struct {
	General struct {
		ID      int    `xml:"id"`
		Name    string `xml:"name"`
		Version string `xml:"version"`
	} `xml:"general"`
	Scope mobileScope `xml:"scope"`
}

type groupCriterion struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

type computerGroupDetail struct {
	ID        int              `xml:"id"`
	Name      string           `xml:"name"`
	Smart     bool             `xml:"is_smart"`
	Criteria  []groupCriterion `xml:"criteria>criterion"`
	Computers []idRef          `xml:"computers>computer"`
}

type mobileGroupDetail struct {
	ID            int              `xml:"id"`
	Name          string           `xml:"name"`
	Smart         bool             `xml:"is_smart"`
	Criteria      []groupCriterion `xml:"criteria>criterion"`
	MobileDevices []idRef          `xml:"mobile_devices>mobile_device"`
}

type computerDetail struct {
	General struct {
		ID              int    `xml:"id"`
		Name            string `xml:"name"`
		LastContactUTC  string `xml:"last_contact_time_utc"`
		LastContactTime string `xml:"last_contact_time"`
	} `xml:"general"`
	Hardware struct {
		OSVersion string `xml:"os_version"`
	} `xml:"hardware"`
}

type mobileDeviceDetail struct {
	General struct {
		ID                 int    `xml:"id"`
		Name               string `xml:"name"`
		LastInventoryUTC   string `xml:"last_inventory_update_utc"`
		LastInventoryEpoch int64  `xml:"last_inventory_update_epoch"`
		OSVersion          string `xml:"os_version"`
	} `xml:"general"`
}

type packageDetail struct {
	ID       int    `xml:"id"`
	Name     string `xml:"name"`
	Filename string `xml:"filename"`
}

type scriptDetail struct {
	ID   int    `xml:"id"`
	Name string `xml:"name"`
}
