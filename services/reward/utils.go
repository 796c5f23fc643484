package reward

func maskValue(v string) string {
	if len(v) < 6 {
		return "***"
	}
	return v[:3] + "****" + v[len(v)-3:]
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
