package config

// DefaultVars are the values the other settings can refer to as {{Name}}
const DefaultVars = `
PathRWData = "/tmp/merkle"
`

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[Vectors]
Dir = "tree/testvectors/binary_proofs"

[Tree]
# Leaf hashing is split across goroutines from this number of leaves on
ParallelLeafThreshold = 1024

[Signer]
Path = "{{PathRWData}}/signer.keystore"
Password = ""
`
