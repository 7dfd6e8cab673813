package onnx

// Operator type tags emitted by the converter. The Sequence* and Generic*
// operators work over dynamically-sized tensor collections; the rest are
// the standard single-tensor operator set.
const (
	OpAdd          = "Add"
	OpSub          = "Sub"
	OpMul          = "Mul"
	OpEqual        = "Equal"
	OpGreater      = "Greater"
	OpLess         = "Less"
	OpNot          = "Not"
	OpIdentity     = "Identity"
	OpShape        = "Shape"
	OpSize         = "Size"
	OpCeil         = "Ceil"
	OpUnsqueeze    = "Unsqueeze"
	OpConcat       = "Concat"
	OpCast         = "Cast"
	OpExpand       = "Expand"
	OpConstant     = "Constant"
	OpConstantFill = "ConstantFill"
	OpIf           = "If"
	OpLoop         = "Loop"

	OpGenericAdd       = "GenericAdd"
	OpGenericIs        = "GenericIs"
	OpGenericLen       = "GenericLen"
	OpGetItem          = "GetItem"
	OpSequenceAppend   = "SequenceAppend"
	OpSequenceCreate   = "SequenceCreate"
	OpSequenceGetSlice = "SequenceGetSlice"
	OpSequenceLookup   = "SequenceLookup"
	OpSequenceRange    = "SequenceRange"
	OpSequenceSeparate = "SequenceSeparate"
	OpSequenceStack    = "SequenceStack"
)
