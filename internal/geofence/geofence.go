package geofence

import (
	"math"

	"wisefido-guardian/internal/models"
)

// EarthRadiusMeters 地球平均半径（米）
const EarthRadiusMeters = 6371000.0

// Distance 计算两点间的大圆距离（Haversine 公式），单位米
func Distance(a, b models.Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Contains 点是否在区域内（边界上算在内）
func Contains(zone models.Zone, point models.Point) bool {
	return Distance(point, zone.Center()) <= zone.Radius
}

// ResolveZoneName 返回第一个包含该点的区域名称，按输入顺序匹配，重叠时先到先得
// 不在任何区域内返回 "未知区域"
func ResolveZoneName(point models.Point, zones []models.Zone) string {
	for _, zone := range zones {
		if Contains(zone, point) {
			return zone.Name
		}
	}
	return models.UnknownZoneName
}

// IsInAnyZone 点是否在任一区域内
func IsInAnyZone(point models.Point, zones []models.Zone) bool {
	for _, zone := range zones {
		if Contains(zone, point) {
			return true
		}
	}
	return false
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
