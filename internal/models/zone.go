package models

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// UnknownZoneName 不在任何安全区域内时的位置名称
const UnknownZoneName = "未知区域"

// Zone 安全区域（圆形地理围栏，对应 safe_zones 表）
type Zone struct {
	ZoneID    string  `json:"zone_id,omitempty" db:"zone_id"`
	SubjectID string  `json:"subject_id,omitempty" db:"subject_id"`
	Name      string  `json:"name" db:"zone_name"`
	Latitude  float64 `json:"lat" db:"latitude"`
	Longitude float64 `json:"lng" db:"longitude"`
	Radius    float64 `json:"radius" db:"radius"` // 米，> 0
	Active    bool    `json:"active" db:"is_active"`
	Priority  int     `json:"priority,omitempty" db:"priority"` // 越小越优先（家 = 0）
}

// Center 区域中心
func (z Zone) Center() Point {
	return Point{Latitude: z.Latitude, Longitude: z.Longitude}
}

// ActiveZones 过滤出启用的区域，保持输入顺序
func ActiveZones(zones []Zone) []Zone {
	active := make([]Zone, 0, len(zones))
	for _, z := range zones {
		if z.Active {
			active = append(active, z)
		}
	}
	return active
}

// ZonesFingerprint 区域集合的指纹，任一区域增删或修改后改变
func ZonesFingerprint(zones []Zone) string {
	d := xxhash.New()
	for _, z := range zones {
		fmt.Fprintf(d, "%s|%s|%.7f|%.7f|%.2f|%t|%d;", z.ZoneID, z.Name, z.Latitude, z.Longitude, z.Radius, z.Active, z.Priority)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
