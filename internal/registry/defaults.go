package registry

import "github.com/envimetry/pipeline/internal/telemetry"

// DefaultLocations returns the built-in Vietnamese city list used when no
// location file is configured. Coordinates are city centers.
func DefaultLocations() []telemetry.Location {
	return []telemetry.Location{
		vn("Ho Chi Minh City", "Ho Chi Minh", 10.8231, 106.6297, "Saigon", "HCMC", "Ho-Chi-Minh-City", "Thanh pho Ho Chi Minh"),
		vn("Hanoi", "Hanoi", 21.0285, 105.8542, "Ha Noi", "Hà Nội", "Capital"),
		vn("Da Nang", "Da Nang", 16.0544, 108.2022, "Đà Nẵng", "Danang"),
		vn("Can Tho", "Can Tho", 10.0452, 105.7469, "Cần Thơ", "Cantho"),
		vn("Hai Phong", "Hai Phong", 20.8449, 106.6881, "Hải Phòng", "Haiphong"),
		vn("Bien Hoa", "Dong Nai", 10.9460, 106.8234, "Biên Hòa"),
		vn("Hue", "Thua Thien Hue", 16.4637, 107.5909, "Huế", "Hue City"),
		vn("Nha Trang", "Khanh Hoa", 12.2388, 109.1967, "Nhatrang"),
		vn("Buon Ma Thuot", "Dak Lak", 12.6667, 108.0500, "Buôn Ma Thuột", "Dak Lak"),
		vn("Quy Nhon", "Binh Dinh", 13.7563, 109.2297, "Qui Nhon", "Quy-Nhon"),
		vn("Vung Tau", "Ba Ria Vung Tau", 10.4113, 107.1364, "Vũng Tàu", "Vungtau"),
		vn("Thu Dau Mot", "Binh Duong", 10.9804, 106.6519, "Thủ Dầu Một", "Thu-Dau-Mot"),
		vn("Long Xuyen", "An Giang", 10.3861, 105.4348, "Long Xuyên"),
		vn("My Tho", "Tien Giang", 10.3600, 106.3597, "Mỹ Tho", "MyTho"),
		vn("Vinh", "Nghe An", 18.6699, 105.6816, "Vinh City"),
		vn("Rach Gia", "Kien Giang", 10.0128, 105.0800, "Rạch Giá", "Rachgia"),
		vn("Pleiku", "Gia Lai", 13.9833, 108.0000, "Pleiku City"),
		vn("Dalat", "Lam Dong", 11.9404, 108.4583, "Đà Lạt", "Da Lat"),
		vn("Phan Thiet", "Binh Thuan", 10.9289, 108.1022, "Phan Thiết"),
		vn("Thai Nguyen", "Thai Nguyen", 21.5944, 105.8487, "Thái Nguyên"),
		vn("Nam Dinh", "Nam Dinh", 20.4389, 106.1621, "Nam Định"),
		vn("Ninh Binh", "Ninh Binh", 20.2506, 105.9756, "Ninh Bình"),
		vn("Ha Long", "Quang Ninh", 20.9500, 107.0833, "Hạ Long", "Halong"),
		vn("Bac Ninh", "Bac Ninh", 21.1861, 106.0763, "Bắc Ninh"),
		vn("Hai Duong", "Hai Duong", 20.9373, 106.3145, "Hải Dương"),
		vn("Hung Yen", "Hung Yen", 20.6464, 106.0511, "Hưng Yên"),
		vn("Uong Bi", "Quang Ninh", 21.0358, 106.7733, "Uông Bí"),
		vn("Viet Tri", "Phu Tho", 21.3227, 105.4024, "Việt Trì"),
		vn("Thanh Hoa", "Thanh Hoa", 19.8067, 105.7851, "Thanh Hóa"),
		vn("Dong Hoi", "Quang Binh", 17.4833, 106.6000, "Đông Hới"),
		vn("Dong Ha", "Quang Tri", 16.8167, 107.1000, "Đông Hà"),
		vn("Hoi An", "Quang Nam", 15.8801, 108.3380, "Hội An"),
		vn("Tam Ky", "Quang Nam", 15.5736, 108.4736, "Tam Kỳ"),
		vn("Quang Ngai", "Quang Ngai", 15.1194, 108.7922, "Quảng Ngãi"),
		vn("Tuy Hoa", "Phu Yen", 13.0833, 109.3000, "Tuy Hòa"),
		vn("Cao Lanh", "Dong Thap", 10.4592, 105.6325, "Cao Lãnh"),
		vn("Sa Dec", "Dong Thap", 10.2922, 105.7592, "Sa Đéc"),
		vn("Vinh Long", "Vinh Long", 10.2397, 105.9722, "Vĩnh Long"),
		vn("Tra Vinh", "Tra Vinh", 9.9514, 106.3431, "Trà Vinh"),
		vn("Soc Trang", "Soc Trang", 9.6025, 105.9803, "Sóc Trăng"),
		vn("Bac Lieu", "Bac Lieu", 9.2847, 105.7244, "Bạc Liêu"),
		vn("Ca Mau", "Ca Mau", 9.1767, 105.1525, "Cà Mau"),
		vn("Chau Doc", "An Giang", 10.7011, 105.1119, "Châu Đốc"),
		vn("Ha Tien", "Kien Giang", 10.3831, 104.4881, "Hà Tiên"),
		vn("Phu Quoc", "Kien Giang", 10.2897, 103.9840, "Phú Quốc"),
		vn("Di An", "Binh Duong", 10.9069, 106.7722, "Dĩ An"),
		vn("Tan An", "Long An", 10.5439, 106.4108, "Tân An"),
		vn("Ben Tre", "Ben Tre", 10.2431, 106.3756, "Bến Tre"),
		vn("Tay Ninh", "Tay Ninh", 11.3100, 106.0983, "Tây Ninh"),
	}
}

func vn(name, province string, lat, lon float64, alts ...string) telemetry.Location {
	return telemetry.Location{
		Name:     name,
		AltNames: alts,
		Province: province,
		Country:  "VN",
		Lat:      lat,
		Lon:      lon,
	}
}
