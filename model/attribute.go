package model

// Имена атрибутов управления устройства (аналог файлов sysfs)
const (
	AttrEnable      = "enable"
	AttrSamplingHz  = "sampling_hz"
	AttrThresholdMc = "threshold_mc"
	AttrTempMc      = "temp_mc"
)

// AttrIsReadOnly проверяет, что атрибут name доступен только на чтение
func AttrIsReadOnly(name string) bool {
	return name == AttrTempMc
}

// AttrIsset проверяет, что атрибут с именем name существует
func AttrIsset(name string) bool {
	switch name {
	case AttrEnable, AttrSamplingHz, AttrThresholdMc, AttrTempMc:
		return true
	}
	return false
}
