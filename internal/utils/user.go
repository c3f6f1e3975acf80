package utils

// PatternLevel 根据出现次数给出题型可信度
func PatternLevel(count int) string {
	switch {
	case count >= 20:
		return "HIGHLY_RELIABLE"
	case count >= 10:
		return "STRONG"
	case count >= 5:
		return "CONFIRMED"
	default:
		return "LOW"
	}
}

// GetUserLevel 根据积分返回贡献者等级
func GetUserLevel(points int) string {
	switch {
	case points >= 1000:
		return "Mentor"
	case points >= 300:
		return "Expert"
	case points >= 120:
		return "Verified"
	case points >= 30:
		return "Contributor"
	default:
		return "Newcomer"
	}
}

// VerifiedPoints 达到该积分后公开主页显示认证标记
const VerifiedPoints = 120
