package lexicon

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "nothing": true, "nobody": true,
	"neither": true, "nor": true, "none": true, "without": true, "isn't": true,
	"aren't": true, "wasn't": true, "weren't": true, "don't": true, "doesn't": true,
	"didn't": true, "can't": true, "cannot": true, "won't": true, "shouldn't": true,
	"wouldn't": true, "couldn't": true, "hardly": true, "rarely": true,
}

var boosters = map[string]float64{
	"absolutely": 1, "completely": 1, "extremely": 1, "incredibly": 1, "really": 1,
	"so": 1, "totally": 1, "very": 1, "utterly": 1, "super": 1, "truly": 1,
	"barely": -1, "slightly": -1, "somewhat": -1, "kinda": -1, "marginally": -1,
}

// Valence on the usual -4..4 scale.
var valenceLexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8, "awesome": 3.1,
	"love": 3.2, "loved": 2.9, "lovely": 2.8, "like": 1.5, "liked": 1.8,
	"nice": 1.8, "happy": 2.7, "glad": 2.0, "wonderful": 2.7, "fantastic": 2.6,
	"best": 3.2, "beautiful": 2.9, "kind": 2.4, "thanks": 1.9, "thank": 1.5,
	"helpful": 1.8, "fun": 2.3, "enjoy": 2.2, "enjoyed": 2.3, "perfect": 2.7,
	"brilliant": 2.8, "cool": 1.3, "friendly": 2.2, "calm": 1.3, "safe": 1.9,
	"win": 2.8, "winning": 2.4, "smart": 1.7, "support": 1.7, "respect": 2.1,
	"bad": -2.5, "terrible": -2.1, "awful": -2.0, "horrible": -2.5, "worst": -3.1,
	"hate": -2.7, "hated": -3.2, "hating": -2.3, "dislike": -1.6, "angry": -2.3,
	"sad": -2.1, "ugly": -2.3, "stupid": -2.4, "dumb": -2.3, "idiot": -2.3,
	"idiotic": -2.6, "moron": -2.2, "loser": -2.4, "pathetic": -2.2, "disgusting": -2.4,
	"useless": -1.8, "annoying": -1.7, "boring": -1.3, "poor": -2.1, "fail": -2.5,
	"failed": -2.3, "failure": -2.3, "kill": -3.7, "die": -2.9, "dead": -3.3,
	"hurt": -2.4, "pain": -2.3, "attack": -2.1, "threat": -2.4, "scared": -1.9,
	"fear": -2.2, "worse": -2.1, "wrong": -2.1, "liar": -2.7, "trash": -1.5,
	"garbage": -1.6, "shut": -0.6, "jerk": -2.2, "nasty": -2.6, "evil": -3.4,
	"violent": -2.9, "abuse": -3.2, "crap": -1.6, "damn": -1.7, "hell": -3.6,
}
