package spirv

// Opcode is the low half of the first word of an instruction.
type Opcode uint16

const (
	OpNop                    Opcode = 0
	OpUndef                  Opcode = 1
	OpName                   Opcode = 5
	OpMemberName             Opcode = 6
	OpString                 Opcode = 7
	OpExtension              Opcode = 10
	OpExtInstImport          Opcode = 11
	OpExtInst                Opcode = 12
	OpMemoryModel            Opcode = 14
	OpEntryPoint             Opcode = 15
	OpExecutionMode          Opcode = 16
	OpCapability             Opcode = 17
	OpTypeVoid               Opcode = 19
	OpTypeBool               Opcode = 20
	OpTypeInt                Opcode = 21
	OpTypeFloat              Opcode = 22
	OpTypeVector             Opcode = 23
	OpTypeArray              Opcode = 28
	OpTypeRuntimeArray       Opcode = 29
	OpTypeStruct             Opcode = 30
	OpTypePointer            Opcode = 32
	OpTypeFunction           Opcode = 33
	OpConstantTrue           Opcode = 41
	OpConstantFalse          Opcode = 42
	OpConstant               Opcode = 43
	OpConstantComposite      Opcode = 44
	OpConstantNull           Opcode = 46
	OpFunction               Opcode = 54
	OpFunctionParameter      Opcode = 55
	OpFunctionEnd            Opcode = 56
	OpFunctionCall           Opcode = 57
	OpVariable               Opcode = 59
	OpLoad                   Opcode = 61
	OpStore                  Opcode = 62
	OpAccessChain            Opcode = 65
	OpInBoundsAccessChain    Opcode = 66
	OpPtrAccessChain         Opcode = 67
	OpDecorate               Opcode = 71
	OpMemberDecorate         Opcode = 72
	OpVectorExtractDynamic   Opcode = 77
	OpCompositeConstruct     Opcode = 80
	OpCompositeExtract       Opcode = 81
	OpCompositeInsert        Opcode = 82
	OpCopyObject             Opcode = 83
	OpConvertFToU            Opcode = 109
	OpConvertFToS            Opcode = 110
	OpConvertSToF            Opcode = 111
	OpConvertUToF            Opcode = 112
	OpUConvert               Opcode = 113
	OpSConvert               Opcode = 114
	OpFConvert               Opcode = 115
	OpConvertPtrToU          Opcode = 117
	OpConvertUToPtr          Opcode = 120
	OpBitcast                Opcode = 124
	OpSNegate                Opcode = 126
	OpFNegate                Opcode = 127
	OpIAdd                   Opcode = 128
	OpFAdd                   Opcode = 129
	OpISub                   Opcode = 130
	OpFSub                   Opcode = 131
	OpIMul                   Opcode = 132
	OpFMul                   Opcode = 133
	OpUDiv                   Opcode = 134
	OpSDiv                   Opcode = 135
	OpFDiv                   Opcode = 136
	OpUMod                   Opcode = 137
	OpSRem                   Opcode = 138
	OpSMod                   Opcode = 139
	OpFRem                   Opcode = 140
	OpFMod                   Opcode = 141
	OpIsNan                  Opcode = 156
	OpIsInf                  Opcode = 157
	OpLogicalEqual           Opcode = 164
	OpLogicalNotEqual        Opcode = 165
	OpLogicalOr              Opcode = 166
	OpLogicalAnd             Opcode = 167
	OpLogicalNot             Opcode = 168
	OpSelect                 Opcode = 169
	OpIEqual                 Opcode = 170
	OpINotEqual              Opcode = 171
	OpUGreaterThan           Opcode = 172
	OpSGreaterThan           Opcode = 173
	OpUGreaterThanEqual      Opcode = 174
	OpSGreaterThanEqual      Opcode = 175
	OpULessThan              Opcode = 176
	OpSLessThan              Opcode = 177
	OpULessThanEqual         Opcode = 178
	OpSLessThanEqual         Opcode = 179
	OpFOrdEqual              Opcode = 180
	OpFUnordEqual            Opcode = 181
	OpFOrdNotEqual           Opcode = 182
	OpFUnordNotEqual         Opcode = 183
	OpFOrdLessThan           Opcode = 184
	OpFUnordLessThan         Opcode = 185
	OpFOrdGreaterThan        Opcode = 186
	OpFUnordGreaterThan      Opcode = 187
	OpFOrdLessThanEqual      Opcode = 188
	OpFUnordLessThanEqual    Opcode = 189
	OpFOrdGreaterThanEqual   Opcode = 190
	OpFUnordGreaterThanEqual Opcode = 191
	OpShiftRightLogical      Opcode = 194
	OpShiftRightArithmetic   Opcode = 195
	OpShiftLeftLogical       Opcode = 196
	OpBitwiseOr              Opcode = 197
	OpBitwiseXor             Opcode = 198
	OpBitwiseAnd             Opcode = 199
	OpNot                    Opcode = 200
	OpBitFieldInsert         Opcode = 201
	OpBitFieldSExtract       Opcode = 202
	OpBitFieldUExtract       Opcode = 203
	OpBitReverse             Opcode = 204
	OpBitCount               Opcode = 205
	OpPhi                    Opcode = 245
	OpLoopMerge              Opcode = 246
	OpSelectionMerge         Opcode = 247
	OpLabel                  Opcode = 248
	OpBranch                 Opcode = 249
	OpBranchConditional      Opcode = 250
	OpSwitch                 Opcode = 251
	OpKill                   Opcode = 252
	OpReturn                 Opcode = 253
	OpReturnValue            Opcode = 254
	OpUnreachable            Opcode = 255
)

// grammar describes the instructions this package can parse, print and assemble. Result type and result id,
// when present, are the first words and are not listed in operands.
var grammar = map[Opcode]*opInfo{
	OpNop:                    {name: "OpNop", pure: true},
	OpUndef:                  {name: "OpUndef", hasType: true, hasResult: true, pure: true},
	OpName:                   {name: "OpName", operands: []operandKind{operandID, operandString}},
	OpMemberName:             {name: "OpMemberName", operands: []operandKind{operandID, operandLiteral, operandString}},
	OpString:                 {name: "OpString", hasResult: true, pure: true, operands: []operandKind{operandString}},
	OpExtension:              {name: "OpExtension", operands: []operandKind{operandString}},
	OpExtInstImport:          {name: "OpExtInstImport", hasResult: true, pure: true, operands: []operandKind{operandString}},
	OpExtInst:                {name: "OpExtInst", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandExtInst, operandVariadicIDs}},
	OpMemoryModel:            {name: "OpMemoryModel", operands: []operandKind{operandAddressingModel, operandMemoryModel}},
	OpEntryPoint:             {name: "OpEntryPoint", operands: []operandKind{operandExecutionModel, operandID, operandString, operandVariadicIDs}},
	OpExecutionMode:          {name: "OpExecutionMode", operands: []operandKind{operandID, operandExecutionMode}},
	OpCapability:             {name: "OpCapability", operands: []operandKind{operandCapability}},
	OpTypeVoid:               {name: "OpTypeVoid", hasResult: true, pure: true},
	OpTypeBool:               {name: "OpTypeBool", hasResult: true, pure: true},
	OpTypeInt:                {name: "OpTypeInt", hasResult: true, pure: true, operands: []operandKind{operandLiteral, operandLiteral}},
	OpTypeFloat:              {name: "OpTypeFloat", hasResult: true, pure: true, operands: []operandKind{operandLiteral}},
	OpTypeVector:             {name: "OpTypeVector", hasResult: true, pure: true, operands: []operandKind{operandID, operandLiteral}},
	OpTypeArray:              {name: "OpTypeArray", hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpTypeRuntimeArray:       {name: "OpTypeRuntimeArray", hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpTypeStruct:             {name: "OpTypeStruct", hasResult: true, pure: true, operands: []operandKind{operandVariadicIDs}},
	OpTypePointer:            {name: "OpTypePointer", hasResult: true, pure: true, operands: []operandKind{operandStorageClass, operandID}},
	OpTypeFunction:           {name: "OpTypeFunction", hasResult: true, pure: true, operands: []operandKind{operandID, operandVariadicIDs}},
	OpConstantTrue:           {name: "OpConstantTrue", hasType: true, hasResult: true, pure: true},
	OpConstantFalse:          {name: "OpConstantFalse", hasType: true, hasResult: true, pure: true},
	OpConstant:               {name: "OpConstant", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandContextLiteral}},
	OpConstantComposite:      {name: "OpConstantComposite", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandVariadicIDs}},
	OpConstantNull:           {name: "OpConstantNull", hasType: true, hasResult: true, pure: true},
	OpFunction:               {name: "OpFunction", hasType: true, hasResult: true, operands: []operandKind{operandFunctionControl, operandID}},
	OpFunctionParameter:      {name: "OpFunctionParameter", hasType: true, hasResult: true},
	OpFunctionEnd:            {name: "OpFunctionEnd"},
	OpFunctionCall:           {name: "OpFunctionCall", hasType: true, hasResult: true, operands: []operandKind{operandID, operandVariadicIDs}},
	OpVariable:               {name: "OpVariable", hasType: true, hasResult: true, operands: []operandKind{operandStorageClass, operandOptionalID}},
	OpLoad:                   {name: "OpLoad", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandMemoryAccess}},
	OpStore:                  {name: "OpStore", operands: []operandKind{operandID, operandID, operandMemoryAccess}},
	OpAccessChain:            {name: "OpAccessChain", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandVariadicIDs}},
	OpInBoundsAccessChain:    {name: "OpInBoundsAccessChain", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandVariadicIDs}},
	OpPtrAccessChain:         {name: "OpPtrAccessChain", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID, operandVariadicIDs}},
	OpDecorate:               {name: "OpDecorate", operands: []operandKind{operandID, operandDecoration}},
	OpMemberDecorate:         {name: "OpMemberDecorate", operands: []operandKind{operandID, operandLiteral, operandDecoration}},
	OpVectorExtractDynamic:   {name: "OpVectorExtractDynamic", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpCompositeConstruct:     {name: "OpCompositeConstruct", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandVariadicIDs}},
	OpCompositeExtract:       {name: "OpCompositeExtract", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandVariadicLiterals}},
	OpCompositeInsert:        {name: "OpCompositeInsert", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID, operandVariadicLiterals}},
	OpCopyObject:             {name: "OpCopyObject", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpConvertFToU:            {name: "OpConvertFToU", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpConvertFToS:            {name: "OpConvertFToS", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpConvertSToF:            {name: "OpConvertSToF", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpConvertUToF:            {name: "OpConvertUToF", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpUConvert:               {name: "OpUConvert", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpSConvert:               {name: "OpSConvert", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpFConvert:               {name: "OpFConvert", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpConvertPtrToU:          {name: "OpConvertPtrToU", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpConvertUToPtr:          {name: "OpConvertUToPtr", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpBitcast:                {name: "OpBitcast", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpSNegate:                {name: "OpSNegate", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpFNegate:                {name: "OpFNegate", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpIAdd:                   {name: "OpIAdd", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFAdd:                   {name: "OpFAdd", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpISub:                   {name: "OpISub", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFSub:                   {name: "OpFSub", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpIMul:                   {name: "OpIMul", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFMul:                   {name: "OpFMul", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpUDiv:                   {name: "OpUDiv", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSDiv:                   {name: "OpSDiv", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFDiv:                   {name: "OpFDiv", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpUMod:                   {name: "OpUMod", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSRem:                   {name: "OpSRem", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSMod:                   {name: "OpSMod", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFRem:                   {name: "OpFRem", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFMod:                   {name: "OpFMod", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpIsNan:                  {name: "OpIsNan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpIsInf:                  {name: "OpIsInf", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpLogicalEqual:           {name: "OpLogicalEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpLogicalNotEqual:        {name: "OpLogicalNotEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpLogicalOr:              {name: "OpLogicalOr", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpLogicalAnd:             {name: "OpLogicalAnd", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpLogicalNot:             {name: "OpLogicalNot", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpSelect:                 {name: "OpSelect", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID, operandID}},
	OpIEqual:                 {name: "OpIEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpINotEqual:              {name: "OpINotEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpUGreaterThan:           {name: "OpUGreaterThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSGreaterThan:           {name: "OpSGreaterThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpUGreaterThanEqual:      {name: "OpUGreaterThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSGreaterThanEqual:      {name: "OpSGreaterThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpULessThan:              {name: "OpULessThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSLessThan:              {name: "OpSLessThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpULessThanEqual:         {name: "OpULessThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpSLessThanEqual:         {name: "OpSLessThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFOrdEqual:              {name: "OpFOrdEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFUnordEqual:            {name: "OpFUnordEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFOrdNotEqual:           {name: "OpFOrdNotEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFUnordNotEqual:         {name: "OpFUnordNotEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFOrdLessThan:           {name: "OpFOrdLessThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFUnordLessThan:         {name: "OpFUnordLessThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFOrdGreaterThan:        {name: "OpFOrdGreaterThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFUnordGreaterThan:      {name: "OpFUnordGreaterThan", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFOrdLessThanEqual:      {name: "OpFOrdLessThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFUnordLessThanEqual:    {name: "OpFUnordLessThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFOrdGreaterThanEqual:   {name: "OpFOrdGreaterThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpFUnordGreaterThanEqual: {name: "OpFUnordGreaterThanEqual", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpShiftRightLogical:      {name: "OpShiftRightLogical", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpShiftRightArithmetic:   {name: "OpShiftRightArithmetic", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpShiftLeftLogical:       {name: "OpShiftLeftLogical", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpBitwiseOr:              {name: "OpBitwiseOr", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpBitwiseXor:             {name: "OpBitwiseXor", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpBitwiseAnd:             {name: "OpBitwiseAnd", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID}},
	OpNot:                    {name: "OpNot", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpBitFieldInsert:         {name: "OpBitFieldInsert", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID, operandID, operandID}},
	OpBitFieldSExtract:       {name: "OpBitFieldSExtract", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID, operandID}},
	OpBitFieldUExtract:       {name: "OpBitFieldUExtract", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID, operandID, operandID}},
	OpBitReverse:             {name: "OpBitReverse", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpBitCount:               {name: "OpBitCount", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandID}},
	OpPhi:                    {name: "OpPhi", hasType: true, hasResult: true, pure: true, operands: []operandKind{operandVariadicIDs}},
	OpLoopMerge:              {name: "OpLoopMerge", operands: []operandKind{operandID, operandID, operandLoopControl}},
	OpSelectionMerge:         {name: "OpSelectionMerge", operands: []operandKind{operandID, operandSelectionControl}},
	OpLabel:                  {name: "OpLabel", hasResult: true},
	OpBranch:                 {name: "OpBranch", operands: []operandKind{operandID}},
	OpBranchConditional:      {name: "OpBranchConditional", operands: []operandKind{operandID, operandID, operandID, operandVariadicLiterals}},
	OpSwitch:                 {name: "OpSwitch", operands: []operandKind{operandID, operandID, operandSwitchTargets}},
	OpKill:                   {name: "OpKill"},
	OpReturn:                 {name: "OpReturn"},
	OpReturnValue:            {name: "OpReturnValue", operands: []operandKind{operandID}},
	OpUnreachable:            {name: "OpUnreachable"},
}
