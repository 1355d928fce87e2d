package tplink

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ErrMalformedPayload is returned when a status payload cannot be decoded.
var ErrMalformedPayload = errors.New("malformed status payload")

// fieldAliases lists, per vendor field name, the other names the same field
// is reported under. The vendor name wins when both are present, otherwise
// the first alternate found in order.
var fieldAliases = []struct {
	name       string
	alternates []string
}{
	{"type", []string{"mic_type"}},
	{"mac", []string{"mic_mac", "ethernet_mac"}},
	{"err_code", []string{"errCode"}},
	{"err_msg", []string{"errMsg"}},
	{"sw_ver", []string{"swVer"}},
	{"hw_ver", []string{"hwVer"}},
	{"active_mode", []string{"activeMode"}},
	{"dev_name", []string{"devName"}},
	{"icon_hash", []string{"iconHash"}},
	{"relay_state", []string{"relayState"}},
	{"on_time", []string{"onTime"}},
	{"led_off", []string{"ledOff"}},
	{"is_factory", []string{"isFactory"}},
	{"disco_ver", []string{"discoVer"}},
	{"ctrl_protocols", []string{"ctrlProtocols"}},
	{"light_state", []string{"lightState"}},
	{"dft_on_state", []string{"dftOnState"}},
	{"on_off", []string{"onOff"}},
	{"color_temp", []string{"colorTemp"}},
	{"led_status", []string{"ledStatus"}},
	{"relay_status", []string{"relayStatus"}},
	{"w2g_rssi", []string{"w2gRssi"}},
}

var alternateNames = func() map[string]bool {
	names := map[string]bool{}
	for _, alias := range fieldAliases {
		for _, alternate := range alias.alternates {
			names[alternate] = true
		}
	}
	return names
}()

type rawLightState struct {
	OnOff      *int           `mapstructure:"on_off"`
	Mode       string         `mapstructure:"mode"`
	Hue        int            `mapstructure:"hue"`
	Saturation int            `mapstructure:"saturation"`
	ColorTemp  int            `mapstructure:"color_temp"`
	Brightness int            `mapstructure:"brightness"`
	DftOnState *rawLightState `mapstructure:"dft_on_state"`
}

type rawPlug struct {
	Feature     string `mapstructure:"feature"`
	RelayStatus string `mapstructure:"relay_status"`
}

type rawSysinfo struct {
	ErrCode    int     `mapstructure:"err_code"`
	ErrMsg     string  `mapstructure:"err_msg"`
	SwVer      string  `mapstructure:"sw_ver"`
	HwVer      string  `mapstructure:"hw_ver"`
	Model      string  `mapstructure:"model"`
	DeviceId   string  `mapstructure:"deviceId"`
	HwId       string  `mapstructure:"hwId"`
	OemId      string  `mapstructure:"oemId"`
	Alias      string  `mapstructure:"alias"`
	ActiveMode string  `mapstructure:"active_mode"`
	Rssi       int     `mapstructure:"rssi"`
	Type       string  `mapstructure:"type"`
	Mac        string  `mapstructure:"mac"`
	FwId       string  `mapstructure:"fwId"`
	DevName    string  `mapstructure:"dev_name"`
	IconHash   string  `mapstructure:"icon_hash"`
	RelayState *int    `mapstructure:"relay_state"`
	OnTime     int64   `mapstructure:"on_time"`
	Feature    string  `mapstructure:"feature"`
	LedOff     int     `mapstructure:"led_off"`
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	Brightness *int    `mapstructure:"brightness"`
	IsFactory  *bool   `mapstructure:"is_factory"`
	DiscoVer   *string `mapstructure:"disco_ver"`

	CtrlProtocols *CtrlProtocols         `mapstructure:"ctrl_protocols"`
	LightState    *rawLightState         `mapstructure:"light_state"`
	LedStatus     *string                `mapstructure:"led_status"`
	Plug          *rawPlug               `mapstructure:"plug"`
	System        map[string]interface{} `mapstructure:"system"`
	Wireless      *RangeExtenderWireless `mapstructure:"rangeextender.wireless"`
}

// Parse decodes a JSON status document. Unknown fields are ignored and
// missing fields leave the corresponding values unset.
func Parse(payload []byte) (*Sysinfo, error) {
	document, err := decodeDocument(payload)
	if err != nil {
		return nil, err
	}
	return ParseMap(document)
}

// ParseResponse decodes the full answer to a get_sysinfo query, i.e.
// {"system":{"get_sysinfo":{...}}}. Payloads without that envelope are
// parsed as a bare status document.
func ParseResponse(payload []byte) (*Sysinfo, error) {
	document, err := decodeDocument(payload)
	if err != nil {
		return nil, err
	}
	if system, ok := document["system"].(map[string]interface{}); ok {
		if sysinfo, ok := system["get_sysinfo"].(map[string]interface{}); ok {
			return ParseMap(sysinfo)
		}
	}
	return ParseMap(document)
}

// ParseMap normalizes an already decoded status document.
func ParseMap(document map[string]interface{}) (*Sysinfo, error) {
	if document == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedPayload)
	}
	return parseSysinfo(document, true)
}

func decodeDocument(payload []byte) (map[string]interface{}, error) {
	var document map[string]interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if document == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedPayload)
	}
	return document, nil
}

// parseSysinfo decodes one level of system info. Only the top level may
// carry a nested system info.
func parseSysinfo(document map[string]interface{}, topLevel bool) (*Sysinfo, error) {
	raw := rawSysinfo{}
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &raw,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, fmt.Errorf("error building decoder: %w", err)
	}
	if err := decoder.Decode(canonicalize(document)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	sysinfo := &Sysinfo{
		ErrCode:    raw.ErrCode,
		ErrMsg:     raw.ErrMsg,
		SwVer:      raw.SwVer,
		HwVer:      raw.HwVer,
		Model:      raw.Model,
		DeviceId:   raw.DeviceId,
		HwId:       raw.HwId,
		OemId:      raw.OemId,
		FwId:       raw.FwId,
		Alias:      raw.Alias,
		DevName:    raw.DevName,
		IconHash:   raw.IconHash,
		ActiveMode: raw.ActiveMode,
		Type:       raw.Type,
		Mac:        raw.Mac,
		RSSI:       raw.Rssi,
		Latitude:   raw.Latitude,
		Longitude:  raw.Longitude,
	}

	if raw.RelayState != nil {
		sysinfo.Plug = &Plug{
			RelayState: RelayPowerState(*raw.RelayState),
			LedOff:     LedIndicatorState(raw.LedOff),
			OnTime:     raw.OnTime,
			Feature:    raw.Feature,
		}
	}
	if raw.Brightness != nil {
		sysinfo.Dimmer = &Dimmer{Brightness: *raw.Brightness}
	}
	if raw.LightState != nil || raw.CtrlProtocols != nil || raw.IsFactory != nil || raw.DiscoVer != nil {
		sysinfo.Bulb = newBulb(&raw)
	}

	hasSystem := topLevel && raw.System != nil
	if hasSystem || raw.Wireless != nil || raw.LedStatus != nil || raw.Plug != nil {
		rangeExtender := &RangeExtender{
			LedStatus: LedStatusState(""),
			Wireless:  raw.Wireless,
		}
		if raw.LedStatus != nil {
			rangeExtender.LedStatus = LedStatusState(*raw.LedStatus)
		}
		if raw.Plug != nil {
			rangeExtender.Plug = &RangeExtenderPlug{
				Feature:     raw.Plug.Feature,
				RelayStatus: raw.Plug.RelayStatus == "ON",
			}
		}
		sysinfo.RangeExtender = rangeExtender
	}
	if hasSystem {
		child, err := parseSysinfo(raw.System, false)
		if err != nil {
			return nil, err
		}
		sysinfo.System = child
	}

	return sysinfo, nil
}

func newBulb(raw *rawSysinfo) *Bulb {
	bulb := &Bulb{
		Protocol: raw.CtrlProtocols,
	}
	if raw.IsFactory != nil {
		bulb.IsFactory = *raw.IsFactory
	}
	if raw.DiscoVer != nil {
		bulb.DiscoVer = *raw.DiscoVer
	}
	if raw.LightState != nil {
		state := toLightState(raw.LightState)
		bulb.lightState = &state
		if raw.LightState.DftOnState != nil {
			defaultOnState := toLightState(raw.LightState.DftOnState)
			bulb.defaultOnState = &defaultOnState
		}
	}
	return bulb
}

func toLightState(raw *rawLightState) LightState {
	state := LightState{
		Mode:       raw.Mode,
		Hue:        raw.Hue,
		Saturation: raw.Saturation,
		ColorTemp:  raw.ColorTemp,
		Brightness: raw.Brightness,
	}
	if raw.OnOff != nil {
		state.OnOff = RelayPowerState(*raw.OnOff)
	}
	return state
}

// canonicalize returns a copy of the document where every alternate field
// name is replaced by its vendor name. Nested objects are handled the same
// way.
func canonicalize(document map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(document))
	for key, value := range document {
		if alternateNames[key] {
			continue
		}
		result[key] = canonicalizeValue(value)
	}
	for _, alias := range fieldAliases {
		if _, ok := result[alias.name]; ok {
			continue
		}
		for _, alternate := range alias.alternates {
			if value, ok := document[alternate]; ok {
				result[alias.name] = canonicalizeValue(value)
				break
			}
		}
	}
	return result
}

func canonicalizeValue(value interface{}) interface{} {
	if nested, ok := value.(map[string]interface{}); ok {
		return canonicalize(nested)
	}
	return value
}
