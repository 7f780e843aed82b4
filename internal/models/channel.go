package models

// Channel codes as they appear as signalPoint attributes in ACS-F2 recordings
const (
	ChannelFrequency     = "freq"
	ChannelPhaseAngle    = "phAngle"
	ChannelRealPower     = "power"
	ChannelReactivePower = "reacPower"
	ChannelRMSCurrent    = "rmsCur"
	ChannelRMSVoltage    = "rmsVolt"
)

var allowedChannels = []string{
	ChannelFrequency,
	ChannelPhaseAngle,
	ChannelRealPower,
	ChannelReactivePower,
	ChannelRMSCurrent,
	ChannelRMSVoltage,
}

// AllowedChannels returns a copy of the channel whitelist in canonical order
func AllowedChannels() []string {
	out := make([]string, len(allowedChannels))
	copy(out, allowedChannels)
	return out
}

// IsAllowedChannel reports whether code is one of the six whitelisted channels
func IsAllowedChannel(code string) bool {
	for _, c := range allowedChannels {
		if c == code {
			return true
		}
	}
	return false
}
