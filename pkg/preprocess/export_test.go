package preprocess

// Orient exposes orient to the black-box tests.
var Orient = orient
