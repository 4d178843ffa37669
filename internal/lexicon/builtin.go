package lexicon

// builtin is the static English→Bengali dictionary for common form and
// register vocabulary. Keys are already normalized.
var builtin = map[string]string{
	// personal information
	"name": "নাম", "first name": "প্রথম নাম", "last name": "শেষ নাম", "full name": "পূর্ণ নাম",
	"father name": "পিতার নাম", "mother name": "মাতার নাম", "father's name": "পিতার নাম",
	"mother's name": "মাতার নাম", "age": "বয়স", "sex": "লিঙ্গ", "gender": "লিঙ্গ",
	"male": "পুরুষ", "female": "নারী", "man": "পুরুষ", "woman": "মহিলা",
	"boy": "ছেলে", "girl": "মেয়ে", "address": "ঠিকানা", "phone": "ফোন", "mobile": "মোবাইল",
	"email": "ইমেইল", "id": "আইডি", "id number": "আইডি নম্বর", "nid": "জাতীয় পরিচয়পত্র",
	"national id": "জাতীয় পরিচয়পত্র", "passport": "পাসপোর্ট", "birth certificate": "জন্ম নিবন্ধন",
	"date of birth": "জন্ম তারিখ", "birth date": "জন্ম তারিখ", "religion": "ধর্ম",
	"nationality": "জাতীয়তা", "occupation": "পেশা", "profession": "পেশা", "job": "চাকরি",
	"work": "কাজ", "salary": "বেতন", "income": "আয়", "marital status": "বৈবাহিক অবস্থা",
	"married": "বিবাহিত", "unmarried": "অবিবাহিত", "single": "অবিবাহিত",
	"divorced": "তালাকপ্রাপ্ত", "widow": "বিধবা", "widower": "বিপত্নীক", "widowed": "বিধবা/বিপত্নীক",

	// honorifics
	"mr": "জনাব", "mr.": "জনাব", "mrs": "বেগম", "mrs.": "বেগম", "ms": "মিস",
	"dr.": "ডাঃ", "prof.": "অধ্যাপক",

	// family
	"father": "পিতা", "mother": "মাতা", "son": "পুত্র", "daughter": "কন্যা",
	"husband": "স্বামী", "wife": "স্ত্রী", "brother": "ভাই", "sister": "বোন",

	// occupations
	"doctor": "চিকিৎসক", "engineer": "প্রকৌশলী", "farmer": "কৃষক",
	"businessman": "ব্যবসায়ী", "housewife": "গৃহিণী",

	// education
	"education": "শিক্ষা", "qualification": "যোগ্যতা", "degree": "ডিগ্রি", "school": "স্কুল",
	"college": "কলেজ", "university": "বিশ্ববিদ্যালয়", "institute": "প্রতিষ্ঠান",
	"student": "শিক্ষার্থী", "teacher": "শিক্ষক", "class": "শ্রেণী", "grade": "গ্রেড",
	"result": "ফলাফল", "marks": "নম্বর", "percentage": "শতাংশ", "cgpa": "সিজিপিএ",
	"gpa": "জিপিএ", "subject": "বিষয়", "course": "কোর্স", "semester": "সেমিস্টার",
	"year": "বছর", "batch": "ব্যাচ", "roll": "রোল", "roll number": "রোল নম্বর",
	"registration": "নিবন্ধন", "admission": "ভর্তি", "primary": "প্রাথমিক",
	"secondary": "মাধ্যমিক", "higher secondary": "উচ্চ মাধ্যমিক", "bachelor": "স্নাতক",
	"master": "স্নাতকোত্তর", "phd": "পিএইচডি",

	// address and location
	"district": "জেলা", "division": "বিভাগ", "upazila": "উপজেলা", "thana": "থানা",
	"village": "গ্রাম", "union": "ইউনিয়ন", "ward": "ওয়ার্ড", "city": "শহর", "town": "শহর",
	"area": "এলাকা", "road": "রাস্তা", "street": "রাস্তা", "house": "বাড়ি", "flat": "ফ্ল্যাট",
	"building": "ভবন", "postal code": "পোস্টাল কোড", "zip code": "জিপ কোড",
	"pin code": "পিন কোড", "country": "দেশ", "bangladesh": "বাংলাদেশ", "dhaka": "ঢাকা",
	"chittagong": "চট্টগ্রাম", "sylhet": "সিলেট", "rajshahi": "রাজশাহী", "khulna": "খুলনা",
	"barisal": "বরিশাল", "rangpur": "রংপুর", "mymensingh": "ময়মনসিংহ",

	// common words
	"yes": "হ্যাঁ", "no": "না", "true": "সত্য", "false": "মিথ্যা", "good": "ভাল", "bad": "খারাপ",
	"new": "নতুন", "old": "পুরানো", "total": "মোট", "amount": "পরিমাণ", "date": "তারিখ",
	"time": "সময়", "present": "উপস্থিত", "absent": "অনুপস্থিত",

	// status
	"active": "সক্রিয়", "inactive": "নিষ্ক্রিয়", "valid": "বৈধ", "invalid": "অবৈধ",
	"approved": "অনুমোদিত", "rejected": "প্রত্যাখ্যাত", "pending": "অপেক্ষমাণ",
	"complete": "সম্পূর্ণ", "incomplete": "অসম্পূর্ণ",
}

// Builtin returns a copy of the static dictionary.
func Builtin() map[string]string {
	out := make(map[string]string, len(builtin))
	for k, v := range builtin {
		out[k] = v
	}
	return out
}
