package tts

import (
	"fmt"
	"sort"
	"strings"
)

// VoiceInfo describes an available voice for display in the registry.
type VoiceInfo struct {
	Alias       string // short name accepted on the command line
	ID          string
	Gender      string
	Description string
	Style       string // speaking style applied with this alias, if any
}

var azureVoices = []VoiceInfo{
	{Alias: "Aria", ID: "en-US-AriaNeural", Gender: "female", Description: "Crisp, versatile narrator"},
	{Alias: "Andrew", ID: "en-US-AndrewNeural", Gender: "male", Description: "Warm, conversational"},
	{Alias: "Brandon", ID: "en-US-BrandonNeural", Gender: "male", Description: "Young, friendly"},
	{Alias: "Christopher", ID: "en-US-ChristopherNeural", Gender: "male", Description: "Authoritative"},
	{Alias: "Cora", ID: "en-US-CoraNeural", Gender: "female", Description: "Mature, calm"},
	{Alias: "Eric", ID: "en-US-EricNeural", Gender: "male", Description: "Even, clear"},
	{Alias: "Jenny", ID: "en-US-JennyNeural", Gender: "female", Description: "Friendly, default book voice"},
	{Alias: "Libby", ID: "en-GB-LibbyNeural", Gender: "female", Description: "British English"},
	{Alias: "Sara", ID: "en-US-SaraNeural", Gender: "female", Description: "Bright, expressive"},
	{Alias: "Jacob", ID: "en-US-JacobNeural", Gender: "male", Description: "Relaxed"},
	{Alias: "Jane", ID: "en-US-JaneNeural", Gender: "female", Description: "Measured"},
	{Alias: "Steffan", ID: "en-US-SteffanNeural", Gender: "male", Description: "Steady narrator"},
	{Alias: "Tony", ID: "en-US-TonyNeural", Gender: "male", Description: "Energetic"},
	{Alias: "Nancy", ID: "en-US-NancyNeural", Gender: "female", Description: "Soft, warm"},
	{Alias: "Roger", ID: "en-US-RogerNeural", Gender: "male", Description: "Deep, mature"},
}

var azureNewsVoices = []VoiceInfo{
	{Alias: "AriaCasual", ID: "en-US-AriaNeural", Gender: "female", Description: "News, casual delivery", Style: "newscast-casual"},
	{Alias: "AriaFormal", ID: "en-US-AriaNeural", Gender: "female", Description: "News, formal delivery", Style: "newscast-formal"},
	{Alias: "Jenny", ID: "en-US-JennyNeural", Gender: "female", Description: "News", Style: "newscast"},
	{Alias: "Guy", ID: "en-US-GuyNeural", Gender: "male", Description: "News", Style: "newscast"},
	{Alias: "Sara", ID: "en-US-SaraNeural", Gender: "female", Description: "News, no style"},
	{Alias: "Jane", ID: "en-US-JaneNeural", Gender: "female", Description: "News, no style"},
	{Alias: "Nancy", ID: "en-US-NancyNeural", Gender: "female", Description: "News, no style"},
}

var googleVoices = []VoiceInfo{
	{Alias: "Neural2-J", ID: "en-US-Neural2-J", Gender: "male", Description: "Default Google narrator"},
	{Alias: "Neural2-F", ID: "en-US-Neural2-F", Gender: "female", Description: "Clear, neutral"},
	{Alias: "Neural2-D", ID: "en-US-Neural2-D", Gender: "male", Description: "Low, steady"},
	{Alias: "Wavenet-C", ID: "en-US-Wavenet-C", Gender: "female", Description: "Warm"},
	{Alias: "Studio-O", ID: "en-US-Studio-O", Gender: "female", Description: "Studio narration"},
}

var pollyVoices = []VoiceInfo{
	{Alias: "Matthew", ID: "Matthew", Gender: "male", Description: "en-US, neural"},
	{Alias: "Ruth", ID: "Ruth", Gender: "female", Description: "en-US, neural"},
	{Alias: "Joanna", ID: "Joanna", Gender: "female", Description: "en-US, neural"},
	{Alias: "Stephen", ID: "Stephen", Gender: "male", Description: "en-US, neural"},
	{Alias: "Danielle", ID: "Danielle", Gender: "female", Description: "en-US, neural"},
	{Alias: "Gregory", ID: "Gregory", Gender: "male", Description: "en-US, neural"},
	{Alias: "Amy", ID: "Amy", Gender: "female", Description: "en-GB, neural"},
	{Alias: "Brian", ID: "Brian", Gender: "male", Description: "en-GB, neural"},
	{Alias: "Olivia", ID: "Olivia", Gender: "female", Description: "en-AU, neural"},
	{Alias: "Kajal", ID: "Kajal", Gender: "female", Description: "en-IN, neural"},
}

// AvailableVoices returns the voice catalog for a backend kind. "azure-news"
// lists the Azure voices with newscast styles.
func AvailableVoices(kind string) ([]VoiceInfo, error) {
	switch strings.ToLower(kind) {
	case KindAzure:
		return azureVoices, nil
	case "azure-news":
		return azureNewsVoices, nil
	case KindGoogle:
		return googleVoices, nil
	case KindPolly:
		return pollyVoices, nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", kind)
	}
}

// ResolveVoice maps an alias from a catalog to its voice. A value that is
// already a full voice ID is returned as-is with no style.
func ResolveVoice(catalog []VoiceInfo, name string) (VoiceInfo, error) {
	for _, v := range catalog {
		if strings.EqualFold(v.Alias, name) || v.ID == name {
			return v, nil
		}
	}
	if strings.Count(name, "-") >= 2 {
		return VoiceInfo{Alias: name, ID: name}, nil
	}
	aliases := make([]string, 0, len(catalog))
	for _, v := range catalog {
		aliases = append(aliases, v.Alias)
	}
	sort.Strings(aliases)
	return VoiceInfo{}, fmt.Errorf("unknown voice %q: choose one of %s", name, strings.Join(aliases, ", "))
}
