package i18n

import "strings"

var translations = map[string]string{
	"invalid request":                      "अमान्य अनुरोध",
	"failed to generate token":             "टोकन बनाने में त्रुटि",
	"missing authorization token":          "प्रमाणीकरण टोकन नहीं भेजा गया",
	"invalid token":                        "अमान्य टोकन",
	"failed to validate user":              "उपयोगकर्ता सत्यापन में त्रुटि",
	"user not found":                       "उपयोगकर्ता नहीं मिला",
	"unauthorized":                         "अनधिकृत पहुंच",
	"from and to are required":             "from और to अनिवार्य हैं",
	"not a participant of this conversation": "आप इस वार्तालाप के सदस्य नहीं हैं",
	"failed to load messages":              "संदेश लोड करने में त्रुटि",
	"failed to load users":                 "उपयोगकर्ता सूची लोड करने में त्रुटि",
	"no file provided":                     "कोई फ़ाइल नहीं भेजी गई",
	"file is too large":                    "फ़ाइल का आकार अनुमत सीमा से अधिक है",
	"unsupported file type":                "असमर्थित फ़ाइल प्रकार",
	"failed to save file":                  "फ़ाइल सहेजने में त्रुटि",
	"rate limiter error":                   "अनुरोध सीमा जांच में त्रुटि",
	"rate limit exceeded":                  "अनुरोधों की संख्या सीमा से अधिक है",
	"internal server error":                "आंतरिक सर्वर त्रुटि",
	"not found":                            "नहीं मिला",
	"username must be between 3 and 32 characters":                "उपयोगकर्ता नाम 3 से 32 अक्षरों के बीच होना चाहिए",
	"username can only contain letters, numbers, and underscores": "उपयोगकर्ता नाम में केवल अक्षर, अंक और अंडरस्कोर हो सकते हैं",
	"password must be at least 6 characters":                      "पासवर्ड कम से कम 6 अक्षरों का होना चाहिए",
	"username already exists":                                     "यह उपयोगकर्ता नाम पहले से मौजूद है",
	"invalid username or password":                                "उपयोगकर्ता नाम या पासवर्ड गलत है",
}

var prefixTranslations = map[string]string{
	"failed to hash password:":   "पासवर्ड प्रोसेस करने में त्रुटि",
	"failed to register user:":   "उपयोगकर्ता पंजीकरण में त्रुटि",
	"failed to sign token:":      "टोकन हस्ताक्षर में त्रुटि",
	"failed to parse token:":     "अमान्य टोकन",
	"unexpected signing method:": "अमान्य टोकन हस्ताक्षर विधि",
}

func Translate(message string) string {
	if translated, ok := translations[message]; ok {
		return translated
	}
	for prefix, translated := range prefixTranslations {
		if strings.HasPrefix(message, prefix) {
			return translated
		}
	}
	return message
}
